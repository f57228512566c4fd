// Package handler is the HTTP shell over the attendance engine. Handlers
// translate between JSON and engine calls; no attendance policy lives here.
package handler

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"attendancechecker/internal/attendance"
	"attendancechecker/internal/auth"
	"attendancechecker/internal/export"
	"attendancechecker/internal/lastscan"
)

// AuthConfig carries what the login endpoint needs to issue staff tokens.
type AuthConfig struct {
	StaffUser     string
	StaffPassword string
	Issuer        string
	SigningKey    string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

type Handler struct {
	service  *attendance.Service
	repo     *attendance.Repository
	lastScan *lastscan.Cache // nil when redis is not configured
	authCfg  AuthConfig
}

func New(service *attendance.Service, repo *attendance.Repository, lastScan *lastscan.Cache, authCfg AuthConfig) *Handler {
	return &Handler{service: service, repo: repo, lastScan: lastScan, authCfg: authCfg}
}

// Register wires all routes onto the router. Staff routes sit behind the
// JWT middleware; the scan path and login do not.
func (h *Handler) Register(r *gin.Engine) {
	r.POST("/v1/rfid/scan", h.Scan)
	r.GET("/v1/rfid/last-scan", h.LastScan)
	r.POST("/v1/auth/login", h.Login)

	staff := r.Group("/v1", auth.StaffAuth(h.authCfg.SigningKey, h.authCfg.Issuer))

	staff.POST("/termini/start", h.StartTermin)
	staff.PUT("/termini/:id/end", h.EndTermin)
	staff.GET("/termini", h.ListTermini)
	staff.GET("/termini/:id", h.GetTermin)
	staff.GET("/kolegiji/:id/termini", h.TerminiByKolegij)

	staff.GET("/attendance/kolegij/:id", h.KolegijAttendance)
	staff.GET("/attendance/kolegij/:id/export", h.ExportKolegijAttendance)
	staff.GET("/attendance/termin/:id", h.TerminAttendance)
	staff.GET("/attendance/termin/:id/export", h.ExportTerminAttendance)

	staff.GET("/students", h.ListStudents)
	staff.GET("/students/:id", h.GetStudent)
	staff.POST("/students", h.CreateStudent)
	staff.GET("/kolegiji", h.ListKolegiji)
	staff.GET("/kolegiji/:id", h.GetKolegij)
	staff.GET("/dvorane", h.ListDvorane)
	staff.GET("/dvorane/:id", h.GetDvorana)
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

// ---------- Scanning ----------

// Scan resolves a card read to an active termin and records the check-in.
// 201 for a new record, 200 when the student had already checked in.
func (h *Handler) Scan(c *gin.Context) {
	var req attendance.ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid scan payload"})
		return
	}

	result, err := h.service.Scan(c.Request.Context(), req)

	// The pairing screen wants to see unknown cards too, so the cache is
	// updated for misses as well. Best effort: a cache failure never
	// affects the scan outcome.
	entry := lastscan.Entry{
		CardUID:   req.CardUID,
		DvoranaID: req.DvoranaID,
		Matched:   err == nil,
		ScannedAt: time.Now().UTC(),
	}
	if err == nil {
		entry.TerminID = result.Termin.ID
	}
	if cerr := h.lastScan.Set(c.Request.Context(), entry); cerr != nil {
		log.Printf("last-scan cache update failed: %v", cerr)
	}

	switch {
	case err == nil:
		status := http.StatusCreated
		if !result.Inserted {
			status = http.StatusOK
		}
		c.JSON(status, result)
	case errors.Is(err, attendance.ErrInvalidScan):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid scan payload"})
	case errors.Is(err, attendance.ErrStudentNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "student not found"})
	case errors.Is(err, attendance.ErrNoActiveSession):
		c.JSON(http.StatusNotFound, gin.H{"error": "no active termin for scan"})
	default:
		log.Printf("scan failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "scan failed"})
	}
}

// LastScan returns the most recent scan seen by any reader, if the
// diagnostic cache still holds one.
func (h *Handler) LastScan(c *gin.Context) {
	entry, err := h.lastScan.Get(c.Request.Context())
	if err != nil {
		log.Printf("last-scan cache read failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "last-scan cache unavailable"})
		return
	}
	if entry == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no recent scan"})
		return
	}
	c.JSON(http.StatusOK, entry)
}

// ---------- Auth ----------

func (h *Handler) Login(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if h.authCfg.StaffPassword == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "staff login not configured"})
		return
	}
	if req.Username != h.authCfg.StaffUser || req.Password != h.authCfg.StaffPassword {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	tokens, err := auth.Issue(req.Username, "staff", h.authCfg.Issuer, h.authCfg.SigningKey, h.authCfg.AccessTTL, h.authCfg.RefreshTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
		"expires_at":    tokens.AccessExp.Unix(),
	})
}

// ---------- Termini ----------

func (h *Handler) StartTermin(c *gin.Context) {
	var req struct {
		KolegijID       int64  `json:"kolegij_id" binding:"required"`
		DvoranaID       *int64 `json:"dvorana_id"`
		DurationMinutes int64  `json:"duration_minutes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	t := attendance.Termin{
		KolegijID: req.KolegijID,
		DvoranaID: req.DvoranaID,
		StartTime: time.Now().UTC(),
	}
	// Open-ended unless the caller schedules a fixed duration up front.
	if req.DurationMinutes > 0 {
		end := t.StartTime.Add(time.Duration(req.DurationMinutes) * time.Minute)
		t.EndTime = &end
	}

	created, err := h.repo.InsertTermin(c.Request.Context(), t)
	if err != nil {
		log.Printf("start termin failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "start termin failed"})
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *Handler) EndTermin(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	t, err := h.repo.EndTermin(c.Request.Context(), id, time.Now().UTC())
	if err != nil {
		if errors.Is(err, attendance.ErrTerminNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "termin not found"})
			return
		}
		log.Printf("end termin %d failed: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "end termin failed"})
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *Handler) ListTermini(c *gin.Context) {
	termini, err := h.repo.ListTermini(c.Request.Context())
	if err != nil {
		log.Printf("list termini failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list termini failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"termini": termini})
}

func (h *Handler) GetTermin(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	t, err := h.repo.GetTermin(c.Request.Context(), id)
	if err != nil {
		log.Printf("get termin %d failed: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get termin failed"})
		return
	}
	if t == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "termin not found"})
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *Handler) TerminiByKolegij(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	termini, err := h.repo.TerminiByKolegij(c.Request.Context(), id)
	if err != nil {
		log.Printf("list termini for kolegij %d failed: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list termini failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"termini": termini})
}

// ---------- Reports ----------

func (h *Handler) KolegijAttendance(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	rows, err := h.service.AggregateKolegij(c.Request.Context(), id)
	if err != nil {
		log.Printf("aggregate kolegij %d failed: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "attendance aggregation failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"attendance": rows})
}

func (h *Handler) ExportKolegijAttendance(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	rows, err := h.service.AggregateKolegij(c.Request.Context(), id)
	if err != nil {
		log.Printf("aggregate kolegij %d failed: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "attendance aggregation failed"})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="Prisutnost_po_kolegiju.csv"`)
	c.Header("Content-Type", "text/csv; charset=utf-8")
	if err := export.WriteKolegijReport(c.Writer, rows); err != nil {
		log.Printf("export kolegij %d failed: %v", id, err)
	}
}

func (h *Handler) TerminAttendance(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	checkIns, err := h.repo.CheckInsForTermin(c.Request.Context(), id)
	if err != nil {
		log.Printf("list check-ins for termin %d failed: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list check-ins failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"check_ins": checkIns})
}

func (h *Handler) ExportTerminAttendance(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	checkIns, err := h.repo.CheckInsForTermin(c.Request.Context(), id)
	if err != nil {
		log.Printf("list check-ins for termin %d failed: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list check-ins failed"})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="Prisutnost_po_terminu.csv"`)
	c.Header("Content-Type", "text/csv; charset=utf-8")
	if err := export.WriteTerminReport(c.Writer, checkIns); err != nil {
		log.Printf("export termin %d failed: %v", id, err)
	}
}

// ---------- Metadata ----------

func (h *Handler) ListStudents(c *gin.Context) {
	students, err := h.repo.ListStudents(c.Request.Context())
	if err != nil {
		log.Printf("list students failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list students failed"})
		return
	}
	if students == nil {
		students = []attendance.Student{}
	}
	c.JSON(http.StatusOK, gin.H{"students": students})
}

func (h *Handler) GetStudent(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	st, err := h.repo.GetStudent(c.Request.Context(), id)
	if err != nil {
		log.Printf("get student %d failed: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get student failed"})
		return
	}
	if st == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "student not found"})
		return
	}
	c.JSON(http.StatusOK, st)
}

// CreateStudent seeds a student with their card UID. Routine enrollment
// lives in the faculty's student-records system; this exists for setup
// and for replacing lost cards.
func (h *Handler) CreateStudent(c *gin.Context) {
	var req struct {
		FirstName string  `json:"ime" binding:"required"`
		LastName  string  `json:"prezime" binding:"required"`
		OIB       string  `json:"oib"`
		Email     string  `json:"email"`
		PhotoURL  *string `json:"slika"`
		CardUID   string  `json:"br_kartice" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	st, err := h.repo.InsertStudent(c.Request.Context(), attendance.Student{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		OIB:       req.OIB,
		Email:     req.Email,
		PhotoURL:  req.PhotoURL,
		CardUID:   req.CardUID,
	})
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "student insert failed: " + err.Error()})
		return
	}
	c.JSON(http.StatusCreated, st)
}

func (h *Handler) ListKolegiji(c *gin.Context) {
	kolegiji, err := h.repo.ListKolegiji(c.Request.Context())
	if err != nil {
		log.Printf("list kolegiji failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list kolegiji failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"kolegiji": kolegiji})
}

func (h *Handler) GetKolegij(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	k, err := h.repo.GetKolegij(c.Request.Context(), id)
	if err != nil {
		log.Printf("get kolegij %d failed: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get kolegij failed"})
		return
	}
	if k == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "kolegij not found"})
		return
	}
	c.JSON(http.StatusOK, k)
}

func (h *Handler) ListDvorane(c *gin.Context) {
	dvorane, err := h.repo.ListDvorane(c.Request.Context())
	if err != nil {
		log.Printf("list dvorane failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list dvorane failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"dvorane": dvorane})
}

func (h *Handler) GetDvorana(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	d, err := h.repo.GetDvorana(c.Request.Context(), id)
	if err != nil {
		log.Printf("get dvorana %d failed: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get dvorana failed"})
		return
	}
	if d == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "dvorana not found"})
		return
	}
	c.JSON(http.StatusOK, d)
}
