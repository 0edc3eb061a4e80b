package postgres

import (
	"context"
	"fmt"
)

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: ACCOUNTS AND USERS
// ══════════════════════════════════════════════════════════════════════════════

const migration001Accounts = `
-- Migration: accounts and users
-- Version: 001

CREATE TABLE IF NOT EXISTS accounts (
    number VARCHAR(16) PRIMARY KEY,
    balance NUMERIC(14,2) NOT NULL DEFAULT 0,
    secret_hash TEXT NOT NULL,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT non_negative_balance CHECK (balance >= 0)
);

CREATE TABLE IF NOT EXISTS users (
    id UUID PRIMARY KEY,
    full_name VARCHAR(200) NOT NULL,
    user_name VARCHAR(100) NOT NULL,
    email VARCHAR(254) NOT NULL,
    role VARCHAR(20) NOT NULL,
    bank_account VARCHAR(16) NOT NULL REFERENCES accounts(number),
    profile JSONB NOT NULL DEFAULT '{}'::jsonb,
    total_earnings NUMERIC(14,2) NOT NULL DEFAULT 0,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_role CHECK (role IN ('Learner', 'Instructor', 'Admin'))
);

CREATE INDEX IF NOT EXISTS idx_users_role ON users(role);
CREATE INDEX IF NOT EXISTS idx_users_bank_account ON users(bank_account);
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: COURSE CATALOG
// ══════════════════════════════════════════════════════════════════════════════

const migration002Courses = `
-- Migration: courses, videos, resources
-- Version: 002

CREATE TABLE IF NOT EXISTS courses (
    id UUID PRIMARY KEY,
    title VARCHAR(300) NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    category VARCHAR(100) NOT NULL DEFAULT '',
    instructor_id UUID NOT NULL REFERENCES users(id),
    price NUMERIC(14,2) NOT NULL DEFAULT 0,
    thumbnail_key TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT non_negative_price CHECK (price >= 0)
);

CREATE TABLE IF NOT EXISTS course_videos (
    id UUID PRIMARY KEY,
    course_id UUID NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
    title VARCHAR(300) NOT NULL,
    duration_seconds INTEGER NOT NULL,
    position INTEGER NOT NULL,
    media_key TEXT NOT NULL DEFAULT '',

    CONSTRAINT positive_duration CHECK (duration_seconds > 0),
    CONSTRAINT unique_position UNIQUE (course_id, position)
);

CREATE TABLE IF NOT EXISTS course_resources (
    id BIGSERIAL PRIMARY KEY,
    course_id UUID NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
    title VARCHAR(300) NOT NULL,
    kind VARCHAR(20) NOT NULL,
    media_key TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_courses_instructor ON courses(instructor_id);
CREATE INDEX IF NOT EXISTS idx_courses_created_at ON courses(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_course_videos_course ON course_videos(course_id, position);
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: LEDGER
// ══════════════════════════════════════════════════════════════════════════════

const migration003Ledger = `
-- Migration: transaction log
-- Version: 003

CREATE TABLE IF NOT EXISTS transactions (
    id VARCHAR(40) PRIMARY KEY,
    kind VARCHAR(10) NOT NULL,
    status VARCHAR(10) NOT NULL DEFAULT 'COMPLETED',
    payer VARCHAR(16) NOT NULL REFERENCES accounts(number),
    payee VARCHAR(16) NOT NULL REFERENCES accounts(number),
    amount NUMERIC(14,2) NOT NULL,
    payee_share NUMERIC(14,2) NOT NULL,
    platform_share NUMERIC(14,2) NOT NULL,
    course_id UUID,
    reference VARCHAR(40),
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_kind CHECK (kind IN ('PURCHASE', 'LUMP_SUM', 'REFUND')),
    CONSTRAINT valid_status CHECK (status = 'COMPLETED'),
    CONSTRAINT positive_amount CHECK (amount > 0),
    CONSTRAINT shares_reconstruct_amount CHECK (payee_share + platform_share = amount
        OR kind <> 'PURCHASE')
);

CREATE INDEX IF NOT EXISTS idx_transactions_payer ON transactions(payer, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_transactions_payee ON transactions(payee, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_transactions_course ON transactions(course_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_transactions_kind_created ON transactions(kind, created_at);
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 004: ENROLLMENTS
// ══════════════════════════════════════════════════════════════════════════════

const migration004Enrollments = `
-- Migration: enrollments with versioned watch history
-- Version: 004

CREATE TABLE IF NOT EXISTS enrollments (
    id UUID PRIMARY KEY,
    learner_id UUID NOT NULL REFERENCES users(id),
    course_id UUID NOT NULL REFERENCES courses(id),
    status VARCHAR(15) NOT NULL DEFAULT 'IN_PROGRESS',
    progress INTEGER NOT NULL DEFAULT 0,
    watched JSONB NOT NULL DEFAULT '{}'::jsonb,
    transaction_id VARCHAR(40),
    version INTEGER NOT NULL DEFAULT 1,
    enrolled_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    completed_at TIMESTAMP WITH TIME ZONE,
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT one_enrollment_per_pair UNIQUE (learner_id, course_id),
    CONSTRAINT valid_enrollment_status CHECK (status IN ('IN_PROGRESS', 'COMPLETED')),
    CONSTRAINT bounded_progress CHECK (progress >= 0 AND progress <= 100)
);

CREATE INDEX IF NOT EXISTS idx_enrollments_learner ON enrollments(learner_id, enrolled_at DESC);
CREATE INDEX IF NOT EXISTS idx_enrollments_course ON enrollments(course_id);
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 005: CERTIFICATES
// ══════════════════════════════════════════════════════════════════════════════

const migration005Certificates = `
-- Migration: certificates
-- Version: 005

CREATE TABLE IF NOT EXISTS certificates (
    id UUID PRIMARY KEY,
    serial VARCHAR(40) NOT NULL,
    learner_id UUID NOT NULL REFERENCES users(id),
    course_id UUID NOT NULL REFERENCES courses(id),
    learner_name VARCHAR(200) NOT NULL,
    course_title VARCHAR(300) NOT NULL,
    instructor_name VARCHAR(200) NOT NULL DEFAULT '',
    issued_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    revoked BOOLEAN NOT NULL DEFAULT FALSE,
    revoked_at TIMESTAMP WITH TIME ZONE,

    CONSTRAINT unique_serial UNIQUE (serial),
    CONSTRAINT one_certificate_per_pair UNIQUE (learner_id, course_id)
);

CREATE INDEX IF NOT EXISTS idx_certificates_learner ON certificates(learner_id, issued_at DESC);
`

// RunMigrations applies all migrations in order. Every statement is
// idempotent, so re-running on startup is safe.
func RunMigrations(ctx context.Context, conn *Connection) error {
	migrations := []struct {
		name string
		sql  string
	}{
		{"001_accounts", migration001Accounts},
		{"002_courses", migration002Courses},
		{"003_ledger", migration003Ledger},
		{"004_enrollments", migration004Enrollments},
		{"005_certificates", migration005Certificates},
	}

	for _, m := range migrations {
		if _, err := conn.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrMigrationFailed, m.name, err)
		}
	}
	return nil
}
