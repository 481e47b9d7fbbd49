package progression

import (
	"math"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// XP BOOST CALCULATOR
// ══════════════════════════════════════════════════════════════════════════════

// MergeBoost сливает новый буст с текущим по принципу "только апгрейд":
// замена происходит, если новый множитель строго больше текущего, либо если
// текущий буст уже истёк. Меньший или равный множитель никогда не понижает
// и не укорачивает действующий буст. Возвращает true, если буст применён.
func (p *UserProgress) MergeBoost(newMultiplier float64, newExpiry, now time.Time) bool {
	if newMultiplier < 1.0 {
		return false
	}

	if newMultiplier > p.XPBoostMultiplier || !p.BoostActive(now) {
		p.XPBoostMultiplier = newMultiplier
		expiry := newExpiry
		p.XPBoostExpiry = &expiry
		return true
	}

	return false
}

// BoostActive возвращает true, если буст существует и ещё не истёк.
func (p *UserProgress) BoostActive(now time.Time) bool {
	return p.XPBoostExpiry != nil && now.Before(*p.XPBoostExpiry)
}

// EffectiveMultiplier возвращает действующий множитель: XPBoostMultiplier
// при активном бусте, иначе 1.0.
func (p *UserProgress) EffectiveMultiplier(now time.Time) float64 {
	if p.BoostActive(now) {
		return p.XPBoostMultiplier
	}
	return 1.0
}

// ApplyBoost применяет действующий множитель к базовому XP:
// floor(baseXP * multiplier). Истёкший буст даёт baseXP без изменений.
func (p *UserProgress) ApplyBoost(baseXP int, now time.Time) int {
	return int(math.Floor(float64(baseXP) * p.EffectiveMultiplier(now)))
}
