package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/TheBrokenPipe/minutes-in-seconds/internal/service"
	"github.com/TheBrokenPipe/minutes-in-seconds/internal/store"
	"github.com/TheBrokenPipe/minutes-in-seconds/pkg/logger"
)

// API provides the HTTP handlers for meetings and chats.
type API struct {
	service *service.Service
	log     *logger.Logger
}

func NewAPI(service *service.Service, log *logger.Logger) *API {
	return &API{service: service, log: log}
}

// UploadMeetingHandler accepts a multipart upload with the recording and the
// meeting metadata, and queues the meeting for ingestion.
func (a *API) UploadMeetingHandler(c *gin.Context) {
	name := c.PostForm("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing meeting name"})
		return
	}

	date := time.Now().UTC()
	if raw := c.PostForm("date"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date must be RFC 3339"})
			return
		}
		date = parsed
	}

	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing recording file"})
		return
	}
	reader, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable recording file"})
		return
	}
	defer reader.Close()

	meeting, err := a.service.UploadMeeting(c.Request.Context(), name, date,
		file.Filename, reader, file.Size, file.Header.Get("Content-Type"))
	if err != nil {
		a.log.Error("upload failed: " + err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to upload meeting"})
		return
	}
	c.JSON(http.StatusAccepted, meeting)
}

func (a *API) ListMeetingsHandler(c *gin.Context) {
	meetings, err := a.service.ListMeetings(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list meetings"})
		return
	}
	c.JSON(http.StatusOK, meetings)
}

func (a *API) GetMeetingHandler(c *gin.Context) {
	meeting, err := a.service.GetMeeting(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.respondError(c, err, "failed to load meeting")
		return
	}
	c.JSON(http.StatusOK, meeting)
}

func (a *API) GetMeetingSummaryHandler(c *gin.Context) {
	summary, err := a.service.GetMeetingSummary(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.respondError(c, err, "failed to load summary")
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (a *API) GetMeetingTranscriptHandler(c *gin.Context) {
	utterances, err := a.service.GetMeetingTranscript(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.respondError(c, err, "failed to load transcript")
		return
	}
	c.JSON(http.StatusOK, utterances)
}

func (a *API) DeleteMeetingHandler(c *gin.Context) {
	if err := a.service.DeleteMeeting(c.Request.Context(), c.Param("id")); err != nil {
		a.respondError(c, err, "failed to delete meeting")
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *API) CreateChatHandler(c *gin.Context) {
	var payload struct {
		Name       string   `json:"name" binding:"required"`
		MeetingIDs []string `json:"meeting_ids"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}

	chat, err := a.service.CreateChat(c.Request.Context(), payload.Name, payload.MeetingIDs)
	if err != nil {
		a.respondError(c, err, "failed to create chat")
		return
	}
	c.JSON(http.StatusCreated, chat)
}

func (a *API) ListChatsHandler(c *gin.Context) {
	chats, err := a.service.ListChats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list chats"})
		return
	}
	c.JSON(http.StatusOK, chats)
}

func (a *API) GetChatHandler(c *gin.Context) {
	chat, err := a.service.GetChat(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.respondError(c, err, "failed to load chat")
		return
	}
	c.JSON(http.StatusOK, chat)
}

func (a *API) DeleteChatHandler(c *gin.Context) {
	if err := a.service.DeleteChat(c.Request.Context(), c.Param("id")); err != nil {
		a.respondError(c, err, "failed to delete chat")
		return
	}
	c.Status(http.StatusNoContent)
}

// SendMessageHandler asks a question in a chat and returns the grounded
// assistant reply with its sources.
func (a *API) SendMessageHandler(c *gin.Context) {
	var payload struct {
		Username string `json:"username"`
		Message  string `json:"message" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}
	if payload.Username == "" {
		payload.Username = "User"
	}

	reply, err := a.service.SendMessage(c.Request.Context(), c.Param("id"), payload.Username, payload.Message)
	if err != nil {
		a.respondError(c, err, "failed to answer message")
		return
	}
	c.JSON(http.StatusOK, reply)
}

func (a *API) ChatSummaryHandler(c *gin.Context) {
	summary, err := a.service.SummariseChat(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.respondError(c, err, "failed to summarise chat")
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": summary})
}

func (a *API) respondError(c *gin.Context, err error, message string) {
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	a.log.Error(message + ": " + err.Error())
	c.JSON(http.StatusInternalServerError, gin.H{"error": message})
}
