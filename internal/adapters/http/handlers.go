package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dkurin/huddle/internal/auth"
	"github.com/dkurin/huddle/internal/domain"
	"github.com/dkurin/huddle/internal/storage"
)

type handlers struct {
	deps Deps
}

// userView is the API shape of a user, without the stored hash.
type userView struct {
	ID        domain.UserID `json:"id"`
	Username  string        `json:"username"`
	Email     string        `json:"email"`
	FirstName string        `json:"firstName,omitempty"`
	LastName  string        `json:"lastName,omitempty"`
	Level     string        `json:"level"`
}

func viewOf(u *domain.User) userView {
	return userView{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Level:     u.Level,
	}
}

func (h *handlers) login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid credentials payload"})
		return
	}

	user, err := h.deps.Users.FindByEmail(c.Request.Context(), req.Email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	if err := auth.VerifyPassword(user.PasswordHash, req.Password); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		return
	}

	token, err := h.deps.Tokens.Generate(user)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("token generate")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token generation failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "user": viewOf(user)})
}

func (h *handlers) onlineUsers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"users": h.deps.Coord.Presence.Snapshot()})
}

func (h *handlers) listMeetings(c *gin.Context) {
	meetings, err := h.deps.Meetings.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"meetings": meetings})
}

// createMeeting stores the meeting and queues one invite mail per guest.
// The mail dispatcher picks the jobs up on its next pass.
func (h *handlers) createMeeting(c *gin.Context) {
	var req struct {
		Title   string   `json:"title" binding:"required"`
		Invites []string `json:"invites" binding:"omitempty,dive,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid meeting payload"})
		return
	}

	claims := claimsFrom(c)
	meeting := &domain.Meeting{
		ID:        domain.MeetingID(uuid.NewString()),
		Title:     req.Title,
		HostID:    domain.UserID(claims.UserID),
		CreatedAt: time.Now(),
	}
	if err := h.deps.Meetings.Save(meeting); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed"})
		return
	}

	for _, invite := range req.Invites {
		job := &domain.MailJob{
			From:    claims.Email,
			To:      invite,
			Subject: fmt.Sprintf("Invitation: %s", req.Title),
			HTML:    fmt.Sprintf("<p>You have been invited to <b>%s</b>. Meeting ID: %s</p>", req.Title, meeting.ID),
		}
		if err := h.deps.Mail.Enqueue(job); err != nil {
			log.Error().Err(err).Str("module", "adapters.http").Str("to", invite).Msg("invite mail enqueue")
		}
	}

	c.JSON(http.StatusCreated, gin.H{"meeting": meeting})
}

func (h *handlers) deleteMeeting(c *gin.Context) {
	id := domain.MeetingID(c.Param("id"))
	if err := h.deps.Meetings.Delete(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	c.Status(http.StatusNoContent)
}

const claimsKey = "claims"

func bearerMiddleware(tokens *auth.Tokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		claims, err := tokens.Verify(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

func claimsFrom(c *gin.Context) *auth.Claims {
	v, _ := c.Get(claimsKey)
	claims, _ := v.(*auth.Claims)
	return claims
}
