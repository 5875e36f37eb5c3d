// Package server implements the LessonForge HTTP API
package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/edukit/lessonforge/internal/logger"
	"github.com/edukit/lessonforge/internal/metrics"
	"github.com/edukit/lessonforge/pkg/content"
	"github.com/edukit/lessonforge/pkg/gateway"
	"github.com/edukit/lessonforge/pkg/media"
)

// Server exposes content CRUD and media upload over HTTP.
type Server struct {
	gw      gateway.Gateway
	uploads *media.Orchestrator
	log     *logger.Logger
	met     *metrics.Metrics
}

// NewServer wires the API against a gateway and an upload orchestrator.
func NewServer(gw gateway.Gateway, uploads *media.Orchestrator, log *logger.Logger, met *metrics.Metrics) *Server {
	return &Server{gw: gw, uploads: uploads, log: log, met: met}
}

// Router builds the gin engine with all routes and middleware registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.Default())
	r.Use(RequestObserver(s.met, s.log))

	registerObservability(r)

	api := r.Group("/api")
	api.POST("/contents", s.createContent)
	api.GET("/contents/:id", s.getContent)
	api.PUT("/contents/:id", s.updateContent)
	api.DELETE("/contents/:id", s.deleteContent)
	api.GET("/contents/:id/revisions", s.listRevisions)
	api.GET("/topics/:topic_id/contents", s.listByTopic)
	api.POST("/uploads", s.uploadFile)

	return r
}

// fileUpload is an inline file attachment; Data is base64 in JSON.
type fileUpload struct {
	Name string `json:"name" binding:"required"`
	Data []byte `json:"data" binding:"required"`
}

type contentRequest struct {
	Document content.ContentDocument `json:"document" binding:"required"`
	Files    []fileUpload            `json:"files"`
}

// createContent runs the creation flow: validate, upload the attached files
// as one batch, then persist the fully-resolved document.
func (s *Server) createContent(c *gin.Context) {
	var req contentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	doc := &req.Document
	assignNodeIDs(doc)

	if err := content.ValidateForSubmission(doc, content.ValidateOptions{
		RequireFiles:    true,
		StagedFileCount: len(req.Files),
	}); err != nil {
		s.met.ValidationFailuresTotal.Inc()
		s.met.RecordSubmission("create", "validation_error")
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "violations": violationList(err)})
		return
	}

	if len(req.Files) > 0 {
		urls, err := s.uploads.UploadBatch(c.Request.Context(), stagedFiles(req.Files))
		if err != nil {
			s.met.BatchFailuresTotal.Inc()
			s.met.RecordSubmission("create", "upload_error")
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		doc.FilePaths = urls
	}

	start := time.Now()
	id, err := s.gw.CreateContent(c.Request.Context(), doc)
	s.observeGateway("create", id, start, err)
	if err != nil {
		s.met.RecordSubmission("create", "persistence_error")
		c.JSON(gatewayStatus(err), gin.H{"error": err.Error()})
		return
	}

	s.met.RecordSubmission("create", "success")
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (s *Server) getContent(c *gin.Context) {
	id := c.Param("id")

	start := time.Now()
	doc, err := s.gw.GetContentByID(c.Request.Context(), id)
	s.observeGateway("get", id, start, err)
	if err != nil {
		c.JSON(gatewayStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, doc)
}

// updateContent runs the update flow: reconcile the durable reference prefix
// of the submitted path list against the newly attached files, upload only
// the new ones, then persist.
func (s *Server) updateContent(c *gin.Context) {
	id := c.Param("id")

	var req contentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	doc := &req.Document
	assignNodeIDs(doc)

	if err := content.ValidateForSubmission(doc, content.ValidateOptions{}); err != nil {
		s.met.ValidationFailuresTotal.Inc()
		s.met.RecordSubmission("update", "validation_error")
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "violations": violationList(err)})
		return
	}

	recon := media.NewReconcilerFromDocument(doc.FilePaths)
	for _, f := range req.Files {
		recon.Stage(media.StagedFile{Name: f.Name, Data: f.Data})
	}
	paths, err := recon.Resolve(c.Request.Context(), s.uploads)
	if err != nil {
		s.met.BatchFailuresTotal.Inc()
		s.met.RecordSubmission("update", "upload_error")
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	doc.FilePaths = paths

	start := time.Now()
	err = s.gw.UpdateContent(c.Request.Context(), id, doc)
	s.observeGateway("update", id, start, err)
	if err != nil {
		s.met.RecordSubmission("update", "persistence_error")
		c.JSON(gatewayStatus(err), gin.H{"error": err.Error()})
		return
	}

	s.met.RecordSubmission("update", "success")
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

func (s *Server) deleteContent(c *gin.Context) {
	id := c.Param("id")

	start := time.Now()
	err := s.gw.DeleteContent(c.Request.Context(), id)
	s.observeGateway("delete", id, start, err)
	if err != nil {
		c.JSON(gatewayStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (s *Server) listByTopic(c *gin.Context) {
	topicID := c.Param("topic_id")

	start := time.Now()
	docs, err := s.gw.ListByTopic(c.Request.Context(), topicID)
	s.observeGateway("list", topicID, start, err)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if docs == nil {
		docs = []*content.ContentDocument{}
	}
	c.JSON(http.StatusOK, docs)
}

func (s *Server) listRevisions(c *gin.Context) {
	hist, ok := s.gw.(gateway.Historian)
	if !ok {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "gateway keeps no revision history"})
		return
	}

	id := c.Param("id")
	revs, err := hist.Revisions(c.Request.Context(), id)
	if err != nil {
		c.JSON(gatewayStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, revs)
}

// uploadFile accepts one multipart file, uploads it immediately and returns
// the durable URL. Used by the admin UI for ad hoc media.
func (s *Server) uploadFile(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}

	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	urls, err := s.uploads.UploadBatch(c.Request.Context(), []media.StagedFile{
		{Name: fh.Filename, Data: data},
	})
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": urls[0]})
}

func (s *Server) observeGateway(op, id string, start time.Time, err error) {
	duration := time.Since(start)
	status := "success"
	if err != nil {
		status = "error"
	}
	s.met.RecordGatewayOperation(op, status, duration)
	s.log.LogGatewayOperation(op, id, duration, err)
}

// assignNodeIDs fills in stable identifiers the client omitted.
func assignNodeIDs(doc *content.ContentDocument) {
	for i := range doc.Lessons {
		if doc.Lessons[i].ID == "" {
			doc.Lessons[i].ID = uuid.NewString()
		}
		for j := range doc.Lessons[i].SubHeadings {
			if doc.Lessons[i].SubHeadings[j].ID == "" {
				doc.Lessons[i].SubHeadings[j].ID = uuid.NewString()
			}
		}
	}
}

func stagedFiles(files []fileUpload) []media.StagedFile {
	out := make([]media.StagedFile, len(files))
	for i, f := range files {
		out[i] = media.StagedFile{Name: f.Name, Data: f.Data}
	}
	return out
}

func violationList(err error) []string {
	var verr *content.ValidationError
	if !errors.As(err, &verr) {
		return nil
	}
	out := make([]string, len(verr.Violations))
	for i, v := range verr.Violations {
		out[i] = fmt.Sprintf("%s: %s", v.Rule, v.Message)
	}
	return out
}

func gatewayStatus(err error) int {
	switch {
	case errors.Is(err, gateway.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, gateway.ErrPlaceholderRef):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
