package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/f-sync/igfollow/internal/exportname"
	"github.com/f-sync/igfollow/internal/matrix"
)

const (
	healthRoutePath            = "/healthz"
	exportsRoutePath           = "/api/exports"
	reconcileRoutePath         = "/api/reconcile"
	formFieldExport            = "export"
	formFieldFollowers         = "followers"
	formFieldFollowing         = "following"
	formFieldPreviousFollowers = "previous_followers"
	healthStatusKey            = "status"
	healthStatusOK             = "ok"
	errorResponseKey           = "error"
	errorMessageMissingField   = "missing upload field %q"
	errorMessageInvalidUpload  = "invalid upload"
	errorMessageUploadTooLarge = "upload exceeds %d bytes"
	errorMessageReadUpload     = "read upload"
	errMessageOpenUpload       = "open upload"
	logMessageParseFailure     = "export parse failure"
	logMessageUploadFailure    = "export upload failure"
	logMessageExportParsed     = "export parsed"
	logMessageComparisonBuilt  = "comparison built"
	logFieldFormField          = "form_field"
	logFieldFileName           = "file_name"
	logFieldRecordCount        = "record_count"
	logFieldNonFollowers       = "non_followers"
	ginModeRelease             = "release"

	// DefaultMaxUploadBytes bounds a whole multipart request when RouterConfig leaves it unset.
	DefaultMaxUploadBytes int64 = 32 << 20
)

// ExportService parses uploaded exports and builds comparisons from them.
type ExportService interface {
	ParseExport(content []byte, fileName string) (matrix.ParsedExport, error)
	BuildComparison(input matrix.ComparisonInput) matrix.ComparisonResult
}

// MatrixExportService implements ExportService by delegating to the matrix package.
type MatrixExportService struct{}

// ParseExport uses matrix.ParseExportBytes.
func (MatrixExportService) ParseExport(content []byte, fileName string) (matrix.ParsedExport, error) {
	return matrix.ParseExportBytes(content, fileName)
}

// BuildComparison uses matrix.BuildComparison.
func (MatrixExportService) BuildComparison(input matrix.ComparisonInput) matrix.ComparisonResult {
	return matrix.BuildComparison(input)
}

// RouterConfig configures the HTTP routing for export requests.
type RouterConfig struct {
	Service        ExportService
	Logger         *zap.Logger
	MaxUploadBytes int64
}

// NewRouter constructs a Gin engine configured with the export, reconciliation and health handlers.
func NewRouter(configuration RouterConfig) (*gin.Engine, error) {
	service := configuration.Service
	if service == nil {
		service = MatrixExportService{}
	}
	logger := configuration.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	maxUploadBytes := configuration.MaxUploadBytes
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}

	gin.SetMode(ginModeRelease)
	engine := gin.New()
	engine.Use(gin.Recovery())

	handler := exportHandler{
		service:        service,
		logger:         logger,
		maxUploadBytes: maxUploadBytes,
	}

	engine.GET(healthRoutePath, handler.healthStatus)
	engine.POST(exportsRoutePath, handler.parseExport)
	engine.POST(reconcileRoutePath, handler.reconcileExports)

	return engine, nil
}

type exportResponse struct {
	Records          []matrix.AccountRecord     `json:"records"`
	Metadata         matrix.BatchMetadata       `json:"metadata"`
	Buckets          matrix.RelationshipBuckets `json:"buckets"`
	FilenameMetadata *exportname.Metadata       `json:"filename_metadata,omitempty"`
}

type exportHandler struct {
	service        ExportService
	logger         *zap.Logger
	maxUploadBytes int64
}

func (handler exportHandler) healthStatus(ginContext *gin.Context) {
	ginContext.JSON(http.StatusOK, map[string]string{healthStatusKey: healthStatusOK})
}

func (handler exportHandler) parseExport(ginContext *gin.Context) {
	handler.limitRequestBody(ginContext)

	parsedExport, ok := handler.parseUploadedExport(ginContext, formFieldExport, true)
	if !ok {
		return
	}
	buckets := handler.service.BuildComparison(matrix.ComparisonInput{Followers: *parsedExport}).Buckets

	ginContext.JSON(http.StatusOK, exportResponse{
		Records:          parsedExport.Records,
		Metadata:         parsedExport.Metadata,
		Buckets:          buckets,
		FilenameMetadata: parsedExport.FilenameMetadata,
	})
}

func (handler exportHandler) reconcileExports(ginContext *gin.Context) {
	handler.limitRequestBody(ginContext)

	followersExport, ok := handler.parseUploadedExport(ginContext, formFieldFollowers, true)
	if !ok {
		return
	}
	followingExport, ok := handler.parseUploadedExport(ginContext, formFieldFollowing, true)
	if !ok {
		return
	}
	previousFollowersExport, ok := handler.parseUploadedExport(ginContext, formFieldPreviousFollowers, false)
	if !ok {
		return
	}

	comparison := handler.service.BuildComparison(matrix.ComparisonInput{
		Followers:         *followersExport,
		Following:         followingExport,
		PreviousFollowers: previousFollowersExport,
	})
	nonFollowerCount := 0
	if comparison.Reconciliation != nil {
		nonFollowerCount = len(comparison.Reconciliation.NonFollowers)
	}
	handler.logger.Info(logMessageComparisonBuilt,
		zap.Int(logFieldRecordCount, comparison.Followers.Metadata.Total),
		zap.Int(logFieldNonFollowers, nonFollowerCount),
	)
	ginContext.JSON(http.StatusOK, comparison)
}

func (handler exportHandler) limitRequestBody(ginContext *gin.Context) {
	ginContext.Request.Body = http.MaxBytesReader(ginContext.Writer, ginContext.Request.Body, handler.maxUploadBytes)
}

// parseUploadedExport writes the error response itself and reports false when the request cannot proceed.
// An absent optional field yields a nil export and true.
func (handler exportHandler) parseUploadedExport(ginContext *gin.Context, formField string, required bool) (*matrix.ParsedExport, bool) {
	content, fileName, err := readUploadedFile(ginContext, formField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) && !required {
			return nil, true
		}
		handler.respondUploadError(ginContext, formField, err)
		return nil, false
	}

	parsedExport, err := handler.service.ParseExport(content, fileName)
	if err != nil {
		statusCode := http.StatusInternalServerError
		if matrix.IsParseError(err) {
			statusCode = http.StatusUnprocessableEntity
		}
		handler.logger.Warn(logMessageParseFailure,
			zap.String(logFieldFormField, formField),
			zap.String(logFieldFileName, fileName),
			zap.Error(err),
		)
		ginContext.JSON(statusCode, gin.H{errorResponseKey: err.Error()})
		return nil, false
	}

	handler.logger.Info(logMessageExportParsed,
		zap.String(logFieldFormField, formField),
		zap.String(logFieldFileName, fileName),
		zap.Int(logFieldRecordCount, parsedExport.Metadata.Total),
	)
	return &parsedExport, true
}

func (handler exportHandler) respondUploadError(ginContext *gin.Context, formField string, err error) {
	handler.logger.Warn(logMessageUploadFailure, zap.String(logFieldFormField, formField), zap.Error(err))

	var maxBytesError *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytesError):
		ginContext.JSON(http.StatusRequestEntityTooLarge, gin.H{errorResponseKey: fmt.Sprintf(errorMessageUploadTooLarge, maxBytesError.Limit)})
	case errors.Is(err, http.ErrMissingFile):
		ginContext.JSON(http.StatusBadRequest, gin.H{errorResponseKey: fmt.Sprintf(errorMessageMissingField, formField)})
	default:
		ginContext.JSON(http.StatusBadRequest, gin.H{errorResponseKey: errorMessageInvalidUpload})
	}
}

func readUploadedFile(ginContext *gin.Context, formField string) ([]byte, string, error) {
	fileHeader, err := ginContext.FormFile(formField)
	if err != nil {
		return nil, "", err
	}
	file, err := fileHeader.Open()
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", errMessageOpenUpload, err)
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", errorMessageReadUpload, err)
	}
	return content, fileHeader.Filename, nil
}
