package handlers

import (
	"crypto/subtle"
	"encoding/csv"
	"errors"
	"io"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"time"

	"vrflottery/internal/oracle"
	"vrflottery/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/logger"
)

const (
	coordinatorTokenHeader = "X-Coordinator-Token"
	callerKey              = "caller"
	defaultWinnersLimit    = 20
)

// HTTPHandler holds the dependencies for the HTTP handlers, like the lottery service.
type HTTPHandler struct {
	service          *services.LotteryService
	localOracle      *oracle.LocalCoordinator
	coordinatorAddr  string
	coordinatorToken string
}

// NewHTTPHandler creates a new HTTPHandler. Oracle callbacks presenting
// coordinatorToken are attributed to coordinatorAddr.
func NewHTTPHandler(service *services.LotteryService, coordinatorAddr, coordinatorToken string) *HTTPHandler {
	return &HTTPHandler{
		service:          service,
		coordinatorAddr:  coordinatorAddr,
		coordinatorToken: coordinatorToken,
	}
}

// WithLocalOracle exposes the manual fulfillment route of the in-process coordinator.
func (h *HTTPHandler) WithLocalOracle(c *oracle.LocalCoordinator) *HTTPHandler {
	h.localOracle = c
	return h
}

type enterRequest struct {
	Participant string `json:"participant"`
	Stake       uint64 `json:"stake"`
}

type fulfillRequest struct {
	RequestID   uint64   `json:"requestId"`
	RandomWords []string `json:"randomWords"`
}

// RegisterPublicRoutes registers the routes anyone may call.
func (h *HTTPHandler) RegisterPublicRoutes(router gin.IRouter) {
	router.GET("/lottery", h.GetLottery)
	router.GET("/players/:index", h.GetPlayer)
	router.GET("/winners", h.GetWinners)
	router.GET("/export-winners-csv", h.ExportWinnersCSV)
	router.POST("/enter", h.Enter)
	router.POST("/upload-entries-csv", h.UploadEntriesCSV)
	router.GET("/upkeep", h.CheckUpkeep)
	router.POST("/upkeep", h.PerformUpkeep)
	if h.localOracle != nil {
		router.POST("/v1/vrf/local/fulfill/:requestId", h.LocalFulfill)
	}
}

// RegisterCoordinatorRoutes registers the oracle callback. The group must use CoordinatorMiddleware.
func (h *HTTPHandler) RegisterCoordinatorRoutes(router gin.IRouter) {
	router.POST("/fulfill", h.Fulfill)
}

// CoordinatorMiddleware admits only requests carrying the coordinator token.
func (h *HTTPHandler) CoordinatorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader(coordinatorTokenHeader)
		if h.coordinatorToken == "" || token == "" ||
			subtle.ConstantTimeCompare([]byte(token), []byte(h.coordinatorToken)) != 1 {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": services.ErrOnlyCoordinator.Error()})
			return
		}
		c.Set(callerKey, h.coordinatorAddr)
		c.Next()
	}
}

// GetLottery returns the current round.
func (h *HTTPHandler) GetLottery(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Snapshot())
}

// GetPlayer returns the participant in one entry slot.
func (h *HTTPHandler) GetPlayer(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid player index"})
		return
	}
	player, err := h.service.Player(index)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"index": index, "player": player})
}

// GetWinners returns past settlements, newest first.
func (h *HTTPHandler) GetWinners(c *gin.Context) {
	limit := defaultWinnersLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}
	winners, err := h.service.Winners(c.Request.Context(), limit)
	if err != nil {
		logger.Errorf("Error listing winners: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list winners"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"winners": winners})
}

// Enter handles a single entry.
func (h *HTTPHandler) Enter(c *gin.Context) {
	var req enterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid entry body"})
		return
	}
	event, err := h.service.Enter(c.Request.Context(), req.Participant, req.Stake)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, event)
}

// UploadEntriesCSV handles a CSV upload of participant,stake rows.
func (h *HTTPHandler) UploadEntriesCSV(c *gin.Context) {
	file, _, err := c.Request.FormFile("entriesCSV")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "error retrieving file: " + err.Error()})
		return
	}
	defer file.Close()

	accepted, skipped := 0, 0
	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "error reading CSV: " + err.Error(), "accepted": accepted, "skipped": skipped,
			})
			return
		}

		if len(record) != 2 {
			logger.Infof("Skipping malformed entry CSV record: %v", record)
			skipped++
			continue
		}
		stake, err := strconv.ParseUint(strings.TrimSpace(record[1]), 10, 64)
		if err != nil {
			logger.Infof("Skipping entry CSV record with invalid stake: %v", record)
			skipped++
			continue
		}

		if _, err := h.service.Enter(c.Request.Context(), strings.TrimSpace(record[0]), stake); err != nil {
			// The round closed under us; later rows cannot enter either.
			if errors.Is(err, services.ErrRoundNotOpen) {
				c.JSON(http.StatusConflict, gin.H{
					"error": err.Error(), "accepted": accepted, "skipped": skipped,
				})
				return
			}
			logger.Infof("Skipping entry CSV record %v: %v", record, err)
			skipped++
			continue
		}
		accepted++
	}

	c.JSON(http.StatusOK, gin.H{"accepted": accepted, "skipped": skipped})
}

// CheckUpkeep reports whether the round can be closed.
func (h *HTTPHandler) CheckUpkeep(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"upkeepNeeded": h.service.CheckUpkeep()})
}

// PerformUpkeep closes the round and requests randomness.
func (h *HTTPHandler) PerformUpkeep(c *gin.Context) {
	event, err := h.service.PerformUpkeep(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, event)
}

// Fulfill is the oracle callback carrying random words for a request.
func (h *HTTPHandler) Fulfill(c *gin.Context) {
	var req fulfillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid fulfillment body"})
		return
	}
	words, err := parseWords(req.RandomWords)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	event, err := h.service.FulfillRandomWords(c.Request.Context(), c.GetString(callerKey), req.RequestID, words)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, event)
}

// LocalFulfill makes the in-process coordinator answer a pending request.
func (h *HTTPHandler) LocalFulfill(c *gin.Context) {
	requestID, err := strconv.ParseUint(c.Param("requestId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request id"})
		return
	}
	event, err := h.localOracle.FulfillRandomWords(c.Request.Context(), requestID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, event)
}

// ExportWinnersCSV handles the request to download the settlement history as a CSV file.
func (h *HTTPHandler) ExportWinnersCSV(c *gin.Context) {
	winners, err := h.service.Winners(c.Request.Context(), 0)
	if err != nil {
		logger.Errorf("Error listing winners: %v", err)
		c.String(http.StatusInternalServerError, "Error reading winners")
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment;filename=lottery_winners.csv")

	// Add BOM to ensure UTF-8 compatibility in Excel
	c.Writer.Write([]byte("\xef\xbb\xbf"))

	w := csv.NewWriter(c.Writer)

	if err := w.Write([]string{"requestId", "winner", "winnerIndex", "entrants", "amount", "randomWord", "settledAt"}); err != nil {
		logger.Infof("Error writing CSV header: %v", err)
		c.String(http.StatusInternalServerError, "Error writing CSV")
		return
	}

	for _, s := range winners {
		row := []string{
			strconv.FormatUint(s.RequestID, 10),
			s.Winner,
			strconv.Itoa(s.WinnerIndex),
			strconv.Itoa(s.Entrants),
			strconv.FormatUint(s.Amount, 10),
			s.RandomWord,
			time.Unix(s.SettledAt, 0).UTC().Format(time.RFC3339),
		}
		if err := w.Write(row); err != nil {
			logger.Infof("Error writing CSV row: %v", err)
			c.String(http.StatusInternalServerError, "Error writing CSV")
			return
		}
	}

	w.Flush()

	if err := w.Error(); err != nil {
		logger.Infof("Error flushing CSV writer: %v", err)
		c.String(http.StatusInternalServerError, "Error writing CSV")
	}
}

// parseWords accepts decimal or 0x-prefixed hex words.
func parseWords(raw []string) ([]*big.Int, error) {
	words := make([]*big.Int, 0, len(raw))
	for _, r := range raw {
		w, ok := new(big.Int).SetString(strings.TrimSpace(r), 0)
		if !ok || w.Sign() < 0 {
			return nil, errors.New("invalid random word " + strconv.Quote(r))
		}
		words = append(words, w)
	}
	return words, nil
}

func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrInsufficientStake),
		errors.Is(err, services.ErrInvalidParticipant),
		errors.Is(err, services.ErrNoRandomWords):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrOnlyCoordinator):
		status = http.StatusForbidden
	case errors.Is(err, services.ErrPlayerIndex),
		errors.Is(err, oracle.ErrNonexistentRequest):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrRoundNotOpen),
		errors.Is(err, services.ErrUpkeepNotNeeded),
		errors.Is(err, services.ErrUnknownRequest),
		errors.Is(err, services.ErrSettlementInProgress),
		errors.Is(err, services.ErrStakeOverflow):
		status = http.StatusConflict
	case errors.Is(err, services.ErrTransferFailed):
		status = http.StatusBadGateway
	default:
		logger.Errorf("Unexpected error: %v", err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
