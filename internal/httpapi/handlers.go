package httpapi

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/HendryAvila/casespine/internal/ingest"
	"github.com/HendryAvila/casespine/internal/spine"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// maxBody caps uploaded CSV and backup documents.
const maxBody = 64 << 20

func readBody(c *gin.Context) (string, error) {
	data, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBody))
	if err != nil {
		return "", &ingest.ValidationError{Reason: fmt.Sprintf("reading body: %v", err)}
	}
	return string(data), nil
}

// importCSV handles POST /api/import/csv?schema=&file=
func (s *Server) importCSV(c *gin.Context) {
	body, err := readBody(c)
	if err != nil {
		s.respondError(c, err)
		return
	}
	fileName := c.DefaultQuery("file", "upload.csv")

	res, err := s.importer.ImportCSV(c.Request.Context(), c.DefaultQuery("schema", ingest.SchemaGeneric), body, fileName)
	if err != nil && res == nil {
		s.respondError(c, err)
		return
	}
	if err != nil {
		// Rows before the failure are stored; report them with the error.
		s.log.Warn("csv import stopped early", zap.String("file", fileName), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "result": res})
		return
	}

	status := http.StatusCreated
	if res.AlreadyImported {
		status = http.StatusOK
	}
	c.JSON(status, res)
}

type textRequest struct {
	Content      string `json:"content"`
	FileName     string `json:"fileName"`
	LastModified *int64 `json:"lastModified"`
}

// importText handles POST /api/import/text
func (s *Server) importText(c *gin.Context) {
	var req textRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := s.importer.ImportText(c.Request.Context(), ingest.TextDocument{
		Content:      req.Content,
		FileName:     req.FileName,
		LastModified: req.LastModified,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	if res.Rejection != "" {
		c.JSON(http.StatusConflict, res)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// listSpine handles GET /api/spine?q=&lane=&category=&source=&limit=
func (s *Server) listSpine(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	if q := c.Query("q"); q != "" {
		items, err := s.store.SearchSpine(q, limit)
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, items)
		return
	}

	f := spine.SpineFilter{SourceID: c.Query("source"), Limit: limit}
	if v := c.Query("lane"); v != "" {
		lane, ok := spine.ParseLane(v)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown lane %q", v)})
			return
		}
		f.Lane = lane
	}
	if v := c.Query("category"); v != "" {
		cat, ok := spine.ParseCategory(v)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown category %q", v)})
			return
		}
		f.Category = cat
	}
	if v := c.Query("verified"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "verified must be true or false"})
			return
		}
		f.Verified = &b
	}

	items, err := s.store.ListSpineItems(f)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// getSpine handles GET /api/spine/:id
func (s *Server) getSpine(c *gin.Context) {
	it, err := s.store.GetSpineItem(c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, it)
}

type neutralRequest struct {
	ContentNeutral string `json:"contentNeutral"`
}

// setNeutral handles PATCH /api/spine/:id/neutral
func (s *Server) setNeutral(c *gin.Context) {
	var req neutralRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	it, err := s.store.SetNeutral(c.Param("id"), req.ContentNeutral)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, it)
}

type verifiedRequest struct {
	Verified bool `json:"verified"`
}

// setVerified handles PATCH /api/spine/:id/verified
func (s *Server) setVerified(c *gin.Context) {
	var req verifiedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	it, err := s.store.SetVerified(c.Param("id"), req.Verified)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, it)
}

// promote handles POST /api/timeline/promote
func (s *Server) promote(c *gin.Context) {
	var req spine.PromoteParams
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ev, err := s.store.Promote(req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ev)
}

// listTimeline handles GET /api/timeline?lane=
func (s *Server) listTimeline(c *gin.Context) {
	var lane spine.Lane
	if v := c.Query("lane"); v != "" {
		l, ok := spine.ParseLane(v)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown lane %q", v)})
			return
		}
		lane = l
	}
	events, err := s.store.ListTimelineEvents(lane)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

// setTimelineStatus handles PATCH /api/timeline/:id/status
func (s *Server) setTimelineStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	st, _ := spine.ParseEventStatus(req.Status)
	ev, err := s.store.SetTimelineStatus(c.Param("id"), st)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ev)
}

// listNotes handles GET /api/notes?target_type=&target_id=&include_private=
func (s *Server) listNotes(c *gin.Context) {
	includePrivate, _ := strconv.ParseBool(c.DefaultQuery("include_private", "true"))
	notes, err := s.store.ListStickyNotes(spine.NoteFilter{
		TargetType:     spine.TargetType(c.Query("target_type")),
		TargetID:       c.Query("target_id"),
		IncludePrivate: includePrivate,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, notes)
}

// saveNote handles POST /api/notes. isPrivate defaults to true when absent.
func (s *Server) saveNote(c *gin.Context) {
	n := spine.StickyNote{IsPrivate: true}
	if err := c.ShouldBindJSON(&n); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.store.SaveStickyNote(&n); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, n)
}

// deleteNote handles DELETE /api/notes/:id
func (s *Server) deleteNote(c *gin.Context) {
	if err := s.store.DeleteStickyNote(c.Param("id")); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// export handles GET /api/export?include_private=
func (s *Server) export(c *gin.Context) {
	includePrivate := s.includePrivate
	if v := c.Query("include_private"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "include_private must be true or false"})
			return
		}
		includePrivate = b
	}

	snap, err := s.store.Export(spine.ExportOptions{IncludePrivate: includePrivate})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="casespine-%s.json"`, snap.ExportedAt[:10]))
	c.Header("Content-Type", "application/json; charset=utf-8")
	c.Status(http.StatusOK)
	if err := snap.WriteJSON(c.Writer); err != nil {
		s.log.Error("writing export", zap.Error(err))
	}
}

// masterText handles GET /api/export/master
func (s *Server) masterText(c *gin.Context) {
	text, err := s.store.MasterText()
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.String(http.StatusOK, text)
}

// restore handles POST /api/restore?mode=merge|replace
func (s *Server) restore(c *gin.Context) {
	mode, err := spine.ParseRestoreMode(c.Query("mode"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	body, err := readBody(c)
	if err != nil {
		s.respondError(c, err)
		return
	}
	snap, err := spine.DecodeSnapshot([]byte(body))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := s.store.Restore(snap, mode)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// stats handles GET /api/stats
func (s *Server) stats(c *gin.Context) {
	st, err := s.store.Stats()
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}
