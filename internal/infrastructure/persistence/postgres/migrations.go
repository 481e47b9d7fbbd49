package postgres

// Embedded SQL migrations. Each migration is applied in its own transaction
// and tracked in the schema_migrations table by the Migrator.

const migration001Up = `
-- User progress: one mutable row per user, guarded by a version counter.
CREATE TABLE IF NOT EXISTS user_progress (
    user_id                     TEXT PRIMARY KEY,
    xp                          INTEGER NOT NULL DEFAULT 0 CHECK (xp >= 0),
    streak_days                 INTEGER NOT NULL DEFAULT 0 CHECK (streak_days >= 0),
    longest_streak              INTEGER NOT NULL DEFAULT 0 CHECK (longest_streak >= streak_days),
    last_active_date            DATE,
    current_streak_start_date   DATE,
    last_streak_milestone_days  INTEGER NOT NULL DEFAULT 0,
    last_xp_milestone           INTEGER NOT NULL DEFAULT 0,
    xp_boost_multiplier         DOUBLE PRECISION NOT NULL DEFAULT 1.0 CHECK (xp_boost_multiplier >= 1.0),
    xp_boost_expiry             TIMESTAMP WITH TIME ZONE,
    daily_quest_date            DATE,
    daily_quest_correct         INTEGER NOT NULL DEFAULT 0 CHECK (daily_quest_correct >= 0),
    daily_quest_completed_date  DATE,
    version                     INTEGER NOT NULL DEFAULT 0,
    created_at                  TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at                  TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

-- Append-only reward ledger. The unique pair is the at-most-once guarantee.
CREATE TABLE IF NOT EXISTS user_milestone_achievements (
    id                  TEXT PRIMARY KEY,
    user_id             TEXT NOT NULL,
    milestone_id        TEXT NOT NULL,
    milestone_type      TEXT NOT NULL CHECK (milestone_type IN ('streak', 'xp')),
    achieved_at         TIMESTAMP WITH TIME ZONE NOT NULL,
    granted_multiplier  DOUBLE PRECISION NOT NULL DEFAULT 0,
    granted_hints       INTEGER NOT NULL DEFAULT 0,
    boost_expiry        TIMESTAMP WITH TIME ZONE,
    CONSTRAINT uq_user_milestone UNIQUE (user_id, milestone_id)
);

CREATE INDEX IF NOT EXISTS idx_achievements_user
    ON user_milestone_achievements(user_id, achieved_at DESC);
`

const migration001Down = `
DROP TABLE IF EXISTS user_milestone_achievements;
DROP TABLE IF EXISTS user_progress;
`

const migration002Up = `
-- Milestone configuration. Loaded once at startup; the version row lets
-- clients verify they talk about the same list as the server.
CREATE TABLE IF NOT EXISTS milestone_config (
    id      INTEGER PRIMARY KEY CHECK (id = 1),
    version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS streak_milestones (
    id                   TEXT PRIMARY KEY,
    days_required        INTEGER NOT NULL UNIQUE CHECK (days_required > 0),
    xp_boost_multiplier  DOUBLE PRECISION NOT NULL CHECK (xp_boost_multiplier >= 1.0),
    boost_duration_hours INTEGER NOT NULL CHECK (boost_duration_hours > 0),
    reward_text          TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS xp_milestones (
    id          TEXT PRIMARY KEY,
    xp_required INTEGER NOT NULL UNIQUE CHECK (xp_required > 0),
    free_hints  INTEGER NOT NULL CHECK (free_hints >= 0),
    reward_text TEXT NOT NULL DEFAULT ''
);
`

const migration002Down = `
DROP TABLE IF EXISTS xp_milestones;
DROP TABLE IF EXISTS streak_milestones;
DROP TABLE IF EXISTS milestone_config;
`

const migration003Up = `
-- Ranked sessions with denormalized aggregates, updated atomically with
-- each attempt insert.
CREATE TABLE IF NOT EXISTS ranked_sessions (
    id                  TEXT PRIMARY KEY,
    user_id             TEXT NOT NULL,
    status              TEXT NOT NULL CHECK (status IN ('active', 'completed', 'abandoned')),
    total_score         INTEGER NOT NULL DEFAULT 0,
    questions_answered  INTEGER NOT NULL DEFAULT 0 CHECK (questions_answered >= 0),
    correct_answers     INTEGER NOT NULL DEFAULT 0 CHECK (correct_answers >= 0),
    total_time_ms       BIGINT NOT NULL DEFAULT 0 CHECK (total_time_ms >= 0),
    started_at          TIMESTAMP WITH TIME ZONE NOT NULL,
    ended_at            TIMESTAMP WITH TIME ZONE,
    last_activity_at    TIMESTAMP WITH TIME ZONE NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sessions_user
    ON ranked_sessions(user_id, started_at DESC);

-- Stale-session sweep scans only active sessions.
CREATE INDEX IF NOT EXISTS idx_sessions_active_idle
    ON ranked_sessions(last_activity_at)
    WHERE status = 'active';

-- Leaderboard reads hit only completed, eligible sessions.
CREATE INDEX IF NOT EXISTS idx_sessions_leaderboard
    ON ranked_sessions(total_score DESC, total_time_ms ASC)
    WHERE status = 'completed' AND questions_answered >= 5;

-- Append-only attempt log. An attempt is scored once and never revisited.
CREATE TABLE IF NOT EXISTS ranked_attempts (
    id          TEXT PRIMARY KEY,
    session_id  TEXT NOT NULL REFERENCES ranked_sessions(id) ON DELETE CASCADE,
    question_id TEXT NOT NULL,
    answer      TEXT,
    is_correct  BOOLEAN NOT NULL,
    time_ms     BIGINT NOT NULL CHECK (time_ms >= 0),
    used_hints  INTEGER NOT NULL DEFAULT 0 CHECK (used_hints >= 0),
    score       INTEGER NOT NULL,
    created_at  TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_attempts_session
    ON ranked_attempts(session_id, created_at);
`

const migration003Down = `
DROP TABLE IF EXISTS ranked_attempts;
DROP TABLE IF EXISTS ranked_sessions;
`

const migration004Up = `
-- Question bank. Read-only for the progression engine; rows are managed by
-- the content pipeline.
CREATE TABLE IF NOT EXISTS questions (
    id             TEXT PRIMARY KEY,
    topic          TEXT NOT NULL,
    difficulty     INTEGER NOT NULL CHECK (difficulty BETWEEN 1 AND 5),
    question_type  TEXT NOT NULL CHECK (question_type IN ('mc', 'tf')),
    correct_answer TEXT NOT NULL,
    hints          TEXT[] NOT NULL DEFAULT '{}',
    created_at     TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_questions_topic
    ON questions(topic, difficulty);
`

const migration004Down = `
DROP TABLE IF EXISTS questions;
`

// GetMigrations returns all embedded migrations in order.
func GetMigrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_progress_and_achievements",
			UpSQL:   migration001Up,
			DownSQL: migration001Down,
		},
		{
			Version: 2,
			Name:    "create_milestone_config",
			UpSQL:   migration002Up,
			DownSQL: migration002Down,
		},
		{
			Version: 3,
			Name:    "create_ranked_sessions",
			UpSQL:   migration003Up,
			DownSQL: migration003Down,
		},
		{
			Version: 4,
			Name:    "create_questions",
			UpSQL:   migration004Up,
			DownSQL: migration004Down,
		},
	}
}
