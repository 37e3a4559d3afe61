package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			-- Integration log written by webhooks, syncs and the healer itself
			CREATE TABLE IF NOT EXISTS integration_logs (
				id UUID PRIMARY KEY,
				source VARCHAR(255) NOT NULL DEFAULT '',
				service VARCHAR(255) NOT NULL DEFAULT '',
				operation VARCHAR(255) NOT NULL DEFAULT '',
				status VARCHAR(50) NOT NULL,
				level VARCHAR(50) NOT NULL DEFAULT 'info',
				message TEXT NOT NULL DEFAULT '',
				workflow_id VARCHAR(255) NOT NULL DEFAULT '',
				business VARCHAR(100) NOT NULL DEFAULT '',
				duration_ms BIGINT NOT NULL DEFAULT 0,
				details JSONB,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_integration_logs_created_at ON integration_logs(created_at DESC);
			CREATE INDEX IF NOT EXISTS idx_integration_logs_service ON integration_logs(service);

			-- One row per resolution attempt
			CREATE TABLE resolver_audit_log (
				id UUID PRIMARY KEY,
				run_id VARCHAR(64) NOT NULL,
				issue_id VARCHAR(64) NOT NULL,
				seq INT NOT NULL,
				workflow_id VARCHAR(255) NOT NULL DEFAULT '',
				business VARCHAR(100) NOT NULL DEFAULT '',
				issue_type VARCHAR(50) NOT NULL,
				severity VARCHAR(20) NOT NULL,
				level VARCHAR(5) NOT NULL,
				action VARCHAR(50) NOT NULL,
				attempt INT NOT NULL DEFAULT 0,
				outcome VARCHAR(20) NOT NULL,
				message TEXT NOT NULL DEFAULT '',
				error TEXT NOT NULL DEFAULT '',
				duration_ms BIGINT NOT NULL DEFAULT 0,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				UNIQUE (run_id, issue_id, seq)
			);

			CREATE INDEX idx_resolver_audit_log_key ON resolver_audit_log(workflow_id, issue_type, created_at);

			-- Dashboard tasks, one per (workflow, issue type, day)
			CREATE TABLE dashboard_tasks (
				id UUID PRIMARY KEY,
				dedup_key VARCHAR(400) NOT NULL UNIQUE,
				workflow_id VARCHAR(255) NOT NULL DEFAULT '',
				issue_type VARCHAR(50) NOT NULL,
				day VARCHAR(10) NOT NULL,
				business VARCHAR(100) NOT NULL DEFAULT '',
				title TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				instructions TEXT NOT NULL DEFAULT '',
				severity VARCHAR(20) NOT NULL,
				level VARCHAR(5) NOT NULL,
				priority INT NOT NULL DEFAULT 3,
				category VARCHAR(100) NOT NULL DEFAULT '',
				status VARCHAR(50) NOT NULL CHECK (status IN ('pending_input', 'in_progress', 'done', 'dismissed')),
				created_by VARCHAR(100) NOT NULL DEFAULT '',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_dashboard_tasks_open ON dashboard_tasks(workflow_id, issue_type, level, status);

			-- Per-business job status: thresholds in, last-run outcome out
			CREATE TABLE IF NOT EXISTS job_status (
				job_name VARCHAR(255) PRIMARY KEY,
				business VARCHAR(100) NOT NULL DEFAULT '',
				workflow_id VARCHAR(255) NOT NULL DEFAULT '',
				enabled BOOLEAN NOT NULL DEFAULT true,
				expected_interval_hours DOUBLE PRECISION NOT NULL DEFAULT 0,
				status VARCHAR(20) NOT NULL DEFAULT 'unknown',
				last_run_at TIMESTAMP WITH TIME ZONE,
				last_success_at TIMESTAMP WITH TIME ZONE,
				error_message TEXT NOT NULL DEFAULT '',
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);
		`,
		2: `
			-- Persisted morning briefings
			CREATE TABLE briefings (
				run_id VARCHAR(64) PRIMARY KEY,
				scanned_at TIMESTAMP WITH TIME ZONE NOT NULL,
				generated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				dry_run BOOLEAN NOT NULL DEFAULT false,
				overall_status VARCHAR(20) NOT NULL,
				payload JSONB NOT NULL
			);

			CREATE INDEX idx_briefings_generated_at ON briefings(generated_at DESC);
		`,
	}
}
