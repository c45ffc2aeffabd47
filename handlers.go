package main

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"shiftfund/models"
	"shiftfund/pkg/money"
	"shiftfund/pkg/pipeline"
	"shiftfund/pkg/shift"
	"shiftfund/pkg/target"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const maxSnapshotBytes = 5 * 1024 * 1024

func setupRoutes(r *gin.Engine) {
	r.POST("/register", registerHandler)
	r.POST("/login", loginHandler)
	r.POST("/refresh", refreshHandler)
	r.POST("/revoke_refresh", revokeRefreshHandler)
	authGroup := r.Group("")
	authGroup.Use(jwtAuthMiddleware())
	authGroup.GET("/me", meHandler)
	authGroup.POST("/campaigns", createCampaignHandler)
	authGroup.GET("/campaigns", listCampaignsHandler)
	authGroup.GET("/campaigns/:id", getCampaignHandler)
	authGroup.POST("/campaigns/:id/snapshots", uploadSnapshotHandler)
	authGroup.GET("/campaigns/:id/snapshots", listSnapshotsHandler)
	authGroup.POST("/campaigns/:id/adjustment", adjustmentHandler)
	authGroup.GET("/campaigns/:id/targets", targetsHandler)
}

func jwtAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || len(authHeader) < 8 || authHeader[:7] != "Bearer " {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid Authorization header"})
			c.Abort()
			return
		}
		tokenString := authHeader[7:]
		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrInvalidKeyType
			}
			return jwtSecret, nil
		})
		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid claims"})
			c.Abort()
			return
		}
		username, _ := claims["username"].(string)
		role, _ := claims["role"].(string)
		c.Set("username", username)
		if role != "" {
			c.Set("role", role)
		}
		c.Next()
	}
}

func meHandler(c *gin.Context) {
	usernameVal, _ := c.Get("username")
	if usernameVal == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "context missing username"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"username": usernameVal.(string)})
}

// getUserFromContext fetches the currently authenticated user using the username set by jwtAuthMiddleware
func getUserFromContext(c *gin.Context) (*models.User, bool) {
	unameVal, _ := c.Get("username")
	if unameVal == nil {
		return nil, false
	}
	var user models.User
	if err := db.Where("username = ?", unameVal.(string)).First(&user).Error; err != nil {
		return nil, false
	}
	return &user, true
}

// campaignForRequest loads the campaign in :id and enforces ownership (admin sees all).
func campaignForRequest(c *gin.Context) (*models.Campaign, bool) {
	user, ok := getUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return nil, false
	}
	var campaign models.Campaign
	if err := db.First(&campaign, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "campaign not found"})
		return nil, false
	}
	role, _ := c.Get("role")
	if role != "administrator" && campaign.UserID != user.ID {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return nil, false
	}
	return &campaign, true
}

func createCampaignHandler(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	var req struct {
		Name           string `json:"name" binding:"required"`
		Deadline       string `json:"deadline"` // ISO date, optional
		CurrencySymbol string `json:"currency_symbol"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	campaign := models.Campaign{UserID: user.ID, Name: req.Name, CurrencySymbol: req.CurrencySymbol}
	if campaign.CurrencySymbol == "" {
		campaign.CurrencySymbol = appCfg.UI.CurrencySymbol
	}
	if req.Deadline != "" {
		d, err := shift.ParseDate(req.Deadline)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "deadline must be an ISO date (2006-01-02)"})
			return
		}
		t := time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
		campaign.Deadline = &t
	}
	if err := db.Create(&campaign).Error; err != nil {
		if isUniqueConstraintError(err) {
			c.JSON(http.StatusConflict, gin.H{"error": "campaign already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": campaign.ID})
}

func listCampaignsHandler(c *gin.Context) {
	role, _ := c.Get("role")
	user, ok := getUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	var items []models.Campaign
	q := db.Model(&models.Campaign{})
	if role != "administrator" {
		q = q.Where("user_id = ?", user.ID)
	}
	if err := q.Order("id desc").Limit(200).Find(&items).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, items)
}

func getCampaignHandler(c *gin.Context) {
	campaign, ok := campaignForRequest(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, campaign)
}

// uploadSnapshotHandler accepts a multipart table image, runs the recognition
// pipeline and persists the outcome. Failed recognition keeps a marked
// snapshot record for operator review.
func uploadSnapshotHandler(c *gin.Context) {
	campaign, ok := campaignForRequest(c)
	if !ok {
		return
	}
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file missing"})
		return
	}
	if file.Size > maxSnapshotBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file too large (max 5MB)"})
		return
	}
	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "read failed"})
		return
	}
	data, err := io.ReadAll(src)
	_ = src.Close()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "read failed"})
		return
	}

	opts, ok := pipelineOptions(c, campaign)
	if !ok {
		return
	}
	// reject misconfiguration before anything lands on disk
	if opts.Deadline == nil && opts.DaysOverride == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "campaign has no deadline; set one or pass days_left"})
		return
	}

	// keep the original image on disk for review
	storeName := uuid.NewString() + filepath.Ext(file.Filename)
	relPath := filepath.Join("snapshots", storeName)
	fullPath := filepath.Join(uploadBaseDir(), relPath)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "mkdir failed"})
		return
	}
	if err := os.WriteFile(fullPath, data, 0644); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed"})
		return
	}

	snap := models.Snapshot{
		CampaignID:  campaign.ID,
		FileName:    file.Filename,
		StorePath:   relPath,
		ContentType: file.Header.Get("Content-Type"),
	}
	res, err := pipe.Run(c.Request.Context(), data, opts)
	if err != nil {
		snap.Failed = true
		snap.FailedReason = err.Error()
		if dbErr := db.Create(&snap).Error; dbErr != nil {
			log.Printf("failed snapshot not recorded: %v", dbErr)
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "recognition failed", "snapshot_id": snap.ID})
		return
	}

	rowsJSON, err := json.Marshal(res.Parse.Rows)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "encode rows failed"})
		return
	}
	snap.TotalMinor = res.Parse.TotalMinor
	snap.RowCount = len(res.Parse.Rows)
	snap.Rows = rowsJSON
	if err := db.Create(&snap).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db save failed"})
		return
	}
	// the accumulator may have been adjusted by this invocation
	if campaign.AdjustmentMinor != res.AdjustmentMinor {
		campaign.AdjustmentMinor = res.AdjustmentMinor
		db.Save(campaign)
	}
	c.JSON(http.StatusOK, gin.H{
		"snapshot_id": snap.ID,
		"parse": gin.H{
			"rows":          res.Parse.Rows,
			"total_minor":   res.Parse.TotalMinor,
			"needed_values": res.Parse.NeededValues,
			"total":         money.Format(res.Parse.TotalMinor, campaign.CurrencySymbol),
		},
		"target": targetJSON(res.Target, campaign.CurrencySymbol),
	})
}

func listSnapshotsHandler(c *gin.Context) {
	campaign, ok := campaignForRequest(c)
	if !ok {
		return
	}
	var snaps []models.Snapshot
	if err := db.Where("campaign_id = ?", campaign.ID).Order("id desc").Limit(100).Find(&snaps).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, snaps)
}

// adjustmentHandler records an operator correction on the campaign's
// accumulator without re-running recognition.
func adjustmentHandler(c *gin.Context) {
	campaign, ok := campaignForRequest(c)
	if !ok {
		return
	}
	var req struct {
		Add    float64 `json:"add"`    // major units physically added
		Remove float64 `json:"remove"` // major units physically removed
		Reset  bool    `json:"reset"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	campaign.AdjustmentMinor = target.ApplyAdjustment(campaign.AdjustmentMinor, req.Add, req.Remove, req.Reset)
	if err := db.Save(campaign).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"adjustment_minor": campaign.AdjustmentMinor})
}

// targetsHandler recomputes targets from the latest successful snapshot.
func targetsHandler(c *gin.Context) {
	campaign, ok := campaignForRequest(c)
	if !ok {
		return
	}
	var snap models.Snapshot
	total := int64(0)
	if err := db.Where("campaign_id = ? AND failed = false", campaign.ID).Order("id desc").First(&snap).Error; err == nil {
		total = snap.TotalMinor
	}
	in := target.Input{TotalMinor: total, AdjustmentMinor: campaign.AdjustmentMinor}
	if v := c.Query("days_left"); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil || days < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "days_left must be a positive integer"})
			return
		}
		in.DaysOverride = days
	}
	if d, ok := campaignDeadline(campaign); ok {
		in.Deadline = &d
	}
	res, err := pipe.Targets.Compute(pipe.Targets.Cal.Now(), in)
	if err != nil {
		if errors.Is(err, target.ErrNoDeadline) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "campaign has no deadline; set one or pass days_left"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "target computation failed"})
		return
	}
	c.JSON(http.StatusOK, targetJSON(res, campaign.CurrencySymbol))
}

// pipelineOptions reads the optional form fields controlling one invocation.
func pipelineOptions(c *gin.Context, campaign *models.Campaign) (pipeline.Options, bool) {
	opts := pipeline.Options{AdjustmentMinor: campaign.AdjustmentMinor}
	if d, ok := campaignDeadline(*campaign); ok {
		opts.Deadline = &d
	}
	if v := c.PostForm("end_date"); v != "" {
		d, err := shift.ParseDate(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "end_date must be an ISO date (2006-01-02)"})
			return opts, false
		}
		opts.Deadline = &d
	}
	if v := c.PostForm("days_left"); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil || days < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "days_left must be a positive integer"})
			return opts, false
		}
		opts.DaysOverride = days
	}
	if v := c.PostForm("add"); v != "" {
		opts.AddMajor, _ = strconv.ParseFloat(v, 64)
	}
	if v := c.PostForm("remove"); v != "" {
		opts.RemoveMajor, _ = strconv.ParseFloat(v, 64)
	}
	opts.ResetAdjustment = c.PostForm("reset") == "true"
	return opts, true
}

func campaignDeadline(campaign models.Campaign) (shift.Date, bool) {
	if campaign.Deadline == nil {
		return shift.Date{}, false
	}
	return shift.DateOf(campaign.Deadline.UTC()), true
}

func targetJSON(res target.Result, symbol string) gin.H {
	return gin.H{
		"remaining_minor":  res.RemainingMinor,
		"remaining":        money.Format(res.RemainingMinor, symbol),
		"days_left":        res.DaysLeft,
		"daily_minor":      res.DailyTargetMinor,
		"daily":            money.Format(res.DailyTargetMinor, symbol),
		"per_shift_minor":  res.PerShiftMinor,
		"per_shift":        money.Format(res.PerShiftMinor, symbol),
		"shift_day":        res.Shift.ShiftDay.ISO(),
		"current_shift":    res.Shift.Current,
		"remaining_shifts": res.Shift.Remaining,
	}
}

func registerHandler(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := Register(req.Username, req.Password); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "user registered successfully"})
}

func loginHandler(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, err := Login(req.Username, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	roleName := ""
	if user.RoleID != nil {
		var r models.Role
		if err := db.First(&r, *user.RoleID).Error; err == nil {
			roleName = r.Name
		}
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"username": user.Username,
		"role":     roleName,
		"exp":      time.Now().Add(time.Hour * 24).Unix(),
	})
	tokenString, err := token.SignedString(jwtSecret)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}
	refreshToken, err := createAndStoreRefreshToken(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create refresh token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "login successful", "token": tokenString, "refresh_token": refreshToken})
}

// createAndStoreRefreshToken generates a random refresh token, stores its hash with expiry and returns the raw token string
func createAndStoreRefreshToken(userID uint) (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	token := hex.EncodeToString(b)
	h := sha256.Sum256([]byte(token))
	rt := models.RefreshToken{UserID: userID, TokenHash: hex.EncodeToString(h[:]), ExpiresAt: time.Now().Add(30 * 24 * time.Hour)}
	if err := db.Create(&rt).Error; err != nil {
		return "", err
	}
	return token, nil
}

func findRefreshTokenByRaw(token string) (*models.RefreshToken, error) {
	h := sha256.Sum256([]byte(token))
	th := hex.EncodeToString(h[:])
	var rt models.RefreshToken
	if err := db.Where("token_hash = ?", th).First(&rt).Error; err != nil {
		return nil, err
	}
	return &rt, nil
}

// refreshHandler exchanges a refresh token for a new access token and rotates the refresh token
func refreshHandler(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rt, err := findRefreshTokenByRaw(req.RefreshToken)
	if err != nil || rt.Revoked || time.Now().After(rt.ExpiresAt) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired refresh token"})
		return
	}
	var user models.User
	if err := db.First(&user, rt.UserID).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	roleName := ""
	if user.RoleID != nil {
		var r models.Role
		if err := db.First(&r, *user.RoleID).Error; err == nil {
			roleName = r.Name
		}
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"username": user.Username,
		"role":     roleName,
		"exp":      time.Now().Add(15 * time.Minute).Unix(),
	})
	tokenString, err := token.SignedString(jwtSecret)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}
	// rotate refresh token: revoke existing and create new one
	db.Model(&models.RefreshToken{}).Where("id = ?", rt.ID).Update("revoked", true)
	newRT, err := createAndStoreRefreshToken(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to rotate refresh token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": tokenString, "refresh_token": newRT})
}

// revokeRefreshHandler revokes a given refresh token (useful on logout)
func revokeRefreshHandler(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rt, err := findRefreshTokenByRaw(req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "refresh token not found"})
		return
	}
	rt.Revoked = true
	if err := db.Save(rt).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to revoke token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "refresh token revoked"})
}

func uploadBaseDir() string {
	if v := os.Getenv("UPLOAD_BASE"); v != "" {
		return v
	}
	return "public"
}
