package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			-- Tenants, integrations and templates
			CREATE TABLE organizations (
				id VARCHAR(255) PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				documents_limit INT NOT NULL DEFAULT 10,
				documents_used INT NOT NULL DEFAULT 0,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE TABLE connections (
				id VARCHAR(255) PRIMARY KEY,
				organization_id VARCHAR(255) NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
				provider VARCHAR(100) NOT NULL,
				name VARCHAR(255),
				credentials JSONB DEFAULT '{}',
				config JSONB DEFAULT '{}',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX idx_connections_organization_id ON connections(organization_id);

			CREATE TABLE templates (
				id VARCHAR(255) PRIMARY KEY,
				organization_id VARCHAR(255) NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
				name VARCHAR(255) NOT NULL,
				backend_file_id VARCHAR(255) NOT NULL,
				file_kind VARCHAR(50) NOT NULL DEFAULT 'document',
				version INT NOT NULL DEFAULT 1,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX idx_templates_organization_id ON templates(organization_id);
		`,
		2: `
			-- Workflow definitions and their tag mappings
			CREATE TABLE workflows (
				id VARCHAR(255) PRIMARY KEY,
				organization_id VARCHAR(255) NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
				name VARCHAR(255) NOT NULL,
				description TEXT,
				status VARCHAR(50) NOT NULL CHECK (status IN ('draft', 'active', 'paused', 'archived')),
				source_connection_id VARCHAR(255),
				source_object_type VARCHAR(100) NOT NULL,
				source_config JSONB DEFAULT '{}',
				template_id VARCHAR(255),
				output_folder_id VARCHAR(255),
				output_name_template VARCHAR(500),
				create_pdf BOOLEAN NOT NULL DEFAULT false,
				trigger_type VARCHAR(50),
				trigger_config JSONB DEFAULT '{}',
				post_actions JSONB DEFAULT '[]',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_workflows_organization_id ON workflows(organization_id);
			CREATE INDEX idx_workflows_status ON workflows(status);

			CREATE TABLE workflow_field_mappings (
				id VARCHAR(255) PRIMARY KEY,
				workflow_id VARCHAR(255) NOT NULL REFERENCES workflows(id) ON DELETE CASCADE,
				template_tag VARCHAR(255) NOT NULL,
				source_field VARCHAR(500) NOT NULL,
				transform_type VARCHAR(50),
				transform_config JSONB DEFAULT '{}',
				default_value TEXT,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				UNIQUE (workflow_id, template_tag)
			);
		`,
		3: `
			-- Runs, artifacts and approval pause points
			CREATE TABLE workflow_executions (
				id VARCHAR(255) PRIMARY KEY,
				workflow_id VARCHAR(255) NOT NULL REFERENCES workflows(id) ON DELETE CASCADE,
				organization_id VARCHAR(255) NOT NULL,
				trigger_type VARCHAR(50) NOT NULL,
				trigger_data JSONB DEFAULT '{}',
				triggered_by VARCHAR(255),
				source_object_id VARCHAR(255),
				status VARCHAR(50) NOT NULL CHECK (status IN ('running', 'awaiting_approval', 'completed', 'failed')),
				error_message TEXT,
				started_at TIMESTAMP WITH TIME ZONE NOT NULL,
				completed_at TIMESTAMP WITH TIME ZONE,
				duration_ms BIGINT,
				generated_document_id VARCHAR(255)
			);

			CREATE INDEX idx_workflow_executions_workflow_id ON workflow_executions(workflow_id);
			CREATE INDEX idx_workflow_executions_status ON workflow_executions(status);

			CREATE TABLE generated_documents (
				id VARCHAR(255) PRIMARY KEY,
				organization_id VARCHAR(255) NOT NULL,
				workflow_id VARCHAR(255) NOT NULL REFERENCES workflows(id) ON DELETE CASCADE,
				execution_id VARCHAR(255) NOT NULL,
				connection_id VARCHAR(255),
				source_object_type VARCHAR(100),
				source_object_id VARCHAR(255),
				template_id VARCHAR(255) NOT NULL,
				template_version INT NOT NULL,
				name VARCHAR(500) NOT NULL,
				file_kind VARCHAR(50) NOT NULL,
				backend_file_id VARCHAR(255) NOT NULL,
				backend_url VARCHAR(1000) NOT NULL,
				pdf_file_id VARCHAR(255),
				pdf_url VARCHAR(1000),
				status VARCHAR(50) NOT NULL,
				source_snapshot JSONB DEFAULT '{}',
				generated_by VARCHAR(255),
				generated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				signature_provider VARCHAR(100),
				signature_request_id VARCHAR(255),
				signature_updated_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX idx_generated_documents_workflow_id ON generated_documents(workflow_id);
			CREATE INDEX idx_generated_documents_signature ON generated_documents(signature_provider, signature_request_id);

			CREATE TABLE workflow_approvals (
				id VARCHAR(255) PRIMARY KEY,
				execution_id VARCHAR(255) NOT NULL REFERENCES workflow_executions(id) ON DELETE CASCADE,
				workflow_id VARCHAR(255) NOT NULL REFERENCES workflows(id) ON DELETE CASCADE,
				node_id VARCHAR(255) NOT NULL,
				execution_context JSONB NOT NULL,
				approver_email VARCHAR(255) NOT NULL,
				approval_token VARCHAR(255) NOT NULL UNIQUE,
				status VARCHAR(50) NOT NULL CHECK (status IN ('pending', 'approved', 'rejected', 'expired')),
				message_template TEXT,
				timeout_hours INT NOT NULL,
				expires_at TIMESTAMP WITH TIME ZONE NOT NULL,
				document_url VARCHAR(1000),
				pdf_url VARCHAR(1000),
				auto_approve_on_timeout BOOLEAN NOT NULL DEFAULT false,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				approved_at TIMESTAMP WITH TIME ZONE,
				rejected_at TIMESTAMP WITH TIME ZONE,
				expired_at TIMESTAMP WITH TIME ZONE,
				comment TEXT
			);

			CREATE INDEX idx_workflow_approvals_workflow_id ON workflow_approvals(workflow_id);
			CREATE INDEX idx_workflow_approvals_pending ON workflow_approvals(status, expires_at);
		`,
	}
}
