package model

import "chatproxy-be/pkg/database"

// All lists every table, in migration order.
func All() []interface{} {
	return []interface{}{
		&Chatflow{},
		&ChatSession{},
		&ChatMessage{},
		&FileUpload{},
	}
}

func Indexes() []database.Index {
	return []database.Index{
		{Name: "uq_chatflows_remote_id", Table: "chatflows", Columns: []string{"remote_id"}, Unique: true},

		{Name: "idx_chat_sessions_user_id", Table: "chat_sessions", Columns: []string{"user_id"}},
		{Name: "idx_chat_sessions_chatflow_id", Table: "chat_sessions", Columns: []string{"chatflow_id"}},

		{Name: "idx_chat_messages_flow_session_role_created", Table: "chat_messages", Columns: []string{"chatflow_id", "session_id", "role", "created_at"}},
		{Name: "idx_chat_messages_chatflow_id", Table: "chat_messages", Columns: []string{"chatflow_id"}},
		{Name: "idx_chat_messages_session_id", Table: "chat_messages", Columns: []string{"session_id"}},
		{Name: "idx_chat_messages_user_id", Table: "chat_messages", Columns: []string{"user_id"}},
		{Name: "idx_chat_messages_has_attachments", Table: "chat_messages", Columns: []string{"has_attachments"}},

		{Name: "uq_file_uploads_file_id", Table: "file_uploads", Columns: []string{"file_id"}, Unique: true},
		{Name: "idx_file_uploads_session_uploaded", Table: "file_uploads", Columns: []string{"session_id", "uploaded_at"}},
		{Name: "idx_file_uploads_user_chatflow", Table: "file_uploads", Columns: []string{"user_id", "chatflow_id"}},
		{Name: "idx_file_uploads_content_hash", Table: "file_uploads", Columns: []string{"content_hash"}},
	}
}
