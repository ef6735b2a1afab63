package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"smsink/internal/message"
	"smsink/internal/store"
)

// MessageHandlers provides the read endpoints over stored messages.
type MessageHandlers struct {
	store store.Store
	log   *zerolog.Logger
}

// NewMessageHandlers creates a new message handlers instance.
func NewMessageHandlers(st store.Store, logger *zerolog.Logger) *MessageHandlers {
	return &MessageHandlers{
		store: st,
		log:   logger,
	}
}

// ListQuery represents the query parameters of GET /messages.
type ListQuery struct {
	Limit  int     `form:"limit,default=50" binding:"min=1,max=100"`
	Offset int     `form:"offset,default=0" binding:"min=0"`
	From   string  `form:"from"`
	Since  string  `form:"since"`
	Q      *string `form:"q"`
}

// MessageOut represents one message in API responses.
type MessageOut struct {
	MessageID string  `json:"message_id"`
	From      string  `json:"from"`
	To        string  `json:"to"`
	TS        string  `json:"ts"`
	Text      *string `json:"text"`
	CreatedAt string  `json:"created_at"`
}

// ListResponse represents the paginated GET /messages response body.
type ListResponse struct {
	Data   []MessageOut `json:"data"`
	Total  int          `json:"total"`
	Limit  int          `json:"limit"`
	Offset int          `json:"offset"`
}

// SenderOut represents one entry of the per-sender stats list.
type SenderOut struct {
	From  string `json:"from"`
	Count int    `json:"count"`
}

// StatsResponse represents the GET /stats response body.
type StatsResponse struct {
	TotalMessages     int         `json:"total_messages"`
	SendersCount      int         `json:"senders_count"`
	MessagesPerSender []SenderOut `json:"messages_per_sender"`
	FirstMessageTS    *string     `json:"first_message_ts"`
	LastMessageTS     *string     `json:"last_message_ts"`
}

// List handles GET /messages.
func (h *MessageHandlers) List(c *gin.Context) {
	var q ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.log.Debug().Err(err).Msg("invalid list query")
		c.JSON(http.StatusUnprocessableEntity, DetailResponse{Detail: []message.FieldError{
			{Loc: []string{"query"}, Msg: "Invalid query parameters", Type: "value_error"},
		}})
		return
	}
	if q.Since != "" && !message.TimestampPattern.MatchString(q.Since) {
		c.JSON(http.StatusUnprocessableEntity, DetailResponse{Detail: []message.FieldError{
			{Loc: []string{"query", "since"}, Msg: "String should match pattern '" + message.TimestampPattern.String() + "'", Type: "string_pattern_mismatch"},
		}})
		return
	}

	page, err := h.store.List(c.Request.Context(), store.Query{
		Limit:  q.Limit,
		Offset: q.Offset,
		From:   q.From,
		Since:  q.Since,
		Text:   q.Q,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list messages")
		c.JSON(http.StatusInternalServerError, DetailResponse{Detail: "internal server error"})
		return
	}

	data := make([]MessageOut, 0, len(page.Messages))
	for _, m := range page.Messages {
		data = append(data, MessageOut{
			MessageID: m.MessageID,
			From:      m.FromMSISDN,
			To:        m.ToMSISDN,
			TS:        m.TS,
			Text:      m.Text,
			CreatedAt: m.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, ListResponse{
		Data:   data,
		Total:  page.Total,
		Limit:  q.Limit,
		Offset: q.Offset,
	})
}

// Stats handles GET /stats.
func (h *MessageHandlers) Stats(c *gin.Context) {
	st, err := h.store.Stats(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to compute stats")
		c.JSON(http.StatusInternalServerError, DetailResponse{Detail: "internal server error"})
		return
	}

	perSender := make([]SenderOut, 0, len(st.PerSender))
	for _, sc := range st.PerSender {
		perSender = append(perSender, SenderOut{From: sc.From, Count: sc.Count})
	}

	c.JSON(http.StatusOK, StatsResponse{
		TotalMessages:     st.TotalMessages,
		SendersCount:      st.SendersCount,
		MessagesPerSender: perSender,
		FirstMessageTS:    st.FirstTS,
		LastMessageTS:     st.LastTS,
	})
}
