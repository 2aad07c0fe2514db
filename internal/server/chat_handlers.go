package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"textkit/internal/history"
	"textkit/internal/llm"
	"textkit/pkg/api"
)

// handleChats is the main router for chat endpoints
func (s *Server) handleChats(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/chats")
	path = strings.TrimPrefix(path, "/")

	// GET/POST /api/chats
	if path == "" {
		switch r.Method {
		case http.MethodGet:
			s.handleChatsList(w, r)
		case http.MethodPost:
			s.handleChatCreate(w, r)
		default:
			writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	parts := strings.SplitN(path, "/", 2)
	chatName := parts[0]

	if len(parts) == 1 {
		// GET/DELETE /api/chats/{name}
		switch r.Method {
		case http.MethodGet:
			s.handleChatGet(w, r, chatName)
		case http.MethodDelete:
			s.handleChatDelete(w, r, chatName)
		default:
			writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	// POST /api/chats/{name}/messages
	if parts[1] == "messages" && r.Method == http.MethodPost {
		s.handleChatMessage(w, r, chatName)
		return
	}

	writeError(w, "Not found", http.StatusNotFound)
}

// handleChatsList handles GET /api/chats - list saved chats, newest first
func (s *Server) handleChatsList(w http.ResponseWriter, r *http.Request) {
	chats, err := s.chats.List()
	if err != nil {
		writeError(w, "Failed to list chats: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]any{
		"chats": chats,
	})
}

// handleChatCreate handles POST /api/chats - create a new chat
func (s *Server) handleChatCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name  string `json:"name"`
		Model string `json:"model,omitempty"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if !history.ValidName(req.Name) {
		writeError(w, "Invalid chat name", http.StatusBadRequest)
		return
	}

	if s.chats.Exists(req.Name) {
		writeError(w, "Chat already exists: "+req.Name, http.StatusConflict)
		return
	}

	model := req.Model
	if model == "" {
		model = s.config.LLMModel
	}

	chat := history.NewChat(req.Name, model)
	if err := s.chats.Save(chat); err != nil {
		writeError(w, "Failed to create chat: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, chat)
}

// handleChatGet handles GET /api/chats/{name} - full transcript
func (s *Server) handleChatGet(w http.ResponseWriter, r *http.Request, name string) {
	chat, err := s.chats.Load(name)
	if err != nil {
		writeError(w, "Chat not found: "+name, http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, chat)
}

// handleChatDelete handles DELETE /api/chats/{name}
func (s *Server) handleChatDelete(w http.ResponseWriter, r *http.Request, name string) {
	if err := s.chats.Delete(name); err != nil {
		writeError(w, "Failed to delete chat: "+err.Error(), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, api.StatusResponse{
		Success: true,
		Message: "Chat deleted",
	})
}

// handleChatMessage handles POST /api/chats/{name}/messages - append a
// user message, send the full transcript to the model, and persist the
// assistant reply.
func (s *Server) handleChatMessage(w http.ResponseWriter, r *http.Request, name string) {
	var req struct {
		Content string `json:"content"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if strings.TrimSpace(req.Content) == "" {
		writeError(w, "Content is required", http.StatusBadRequest)
		return
	}

	chat, err := s.chats.Load(name)
	if err != nil {
		writeError(w, "Chat not found: "+name, http.StatusNotFound)
		return
	}

	chat.Append("user", req.Content)

	messages := make([]llm.Message, 0, len(chat.Messages))
	for _, m := range chat.Messages {
		messages = append(messages, llm.Message{Role: m.Role, Content: m.Content})
	}

	model := chat.Model
	if model == "" {
		model = s.config.LLMModel
	}

	start := time.Now()
	reply, err := s.llm.Chat(r.Context(), model, messages)
	s.tracker.Record(model, time.Since(start), err != nil)
	if err != nil {
		writeError(w, "Model request failed: "+err.Error(), http.StatusBadGateway)
		return
	}

	chat.Append("assistant", reply)

	if err := s.chats.Save(chat); err != nil {
		writeError(w, "Failed to save chat: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, api.ChatReplyResponse{
		Reply: reply,
		Model: model,
	})
}
