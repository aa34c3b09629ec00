package server_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/f-sync/igfollow/internal/matrix"
	"github.com/f-sync/igfollow/internal/server"
)

const (
	followersExportContent = "username,full_name,followed_by_you,is_verified\nalice,Alice A,yes,yes\nbob,Bob B,no,no\ncarol,,,\n"
	followingExportContent = "username\nALICE\ndave\n"
	previousExportContent  = "username\nalice\nzoe\n"
	followersFileName      = "IGFollow_owner_3_followers.csv"
	followingFileName      = "IGFollow_owner_2_following.csv"
)

type uploadPart struct {
	field    string
	fileName string
	content  string
}

type exportServiceRecorder struct {
	parsedFileNames []string
	lastInput       matrix.ComparisonInput
	parseError      error
}

func (recorder *exportServiceRecorder) ParseExport(content []byte, fileName string) (matrix.ParsedExport, error) {
	recorder.parsedFileNames = append(recorder.parsedFileNames, fileName)
	if recorder.parseError != nil {
		return matrix.ParsedExport{}, recorder.parseError
	}
	return matrix.ParseExportBytes(content, fileName)
}

func (recorder *exportServiceRecorder) BuildComparison(input matrix.ComparisonInput) matrix.ComparisonResult {
	recorder.lastInput = input
	return matrix.BuildComparison(input)
}

type exportResponse struct {
	Records          []matrix.AccountRecord     `json:"records"`
	Metadata         matrix.BatchMetadata       `json:"metadata"`
	Buckets          matrix.RelationshipBuckets `json:"buckets"`
	FilenameMetadata *struct {
		IGUserName string `json:"ig_username"`
		Count      *int   `json:"count"`
		FileType   string `json:"file_type"`
	} `json:"filename_metadata"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func TestHealthStatus(t *testing.T) {
	router, err := server.NewRouter(server.RouterConfig{})
	if err != nil {
		t.Fatalf("NewRouter returned error: %v", err)
	}
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, recorder.Code)
	}
	if !strings.Contains(recorder.Body.String(), `"status":"ok"`) {
		t.Fatalf("unexpected body %q", recorder.Body.String())
	}
}

func TestParseExportEndpoint(t *testing.T) {
	router, err := server.NewRouter(server.RouterConfig{})
	if err != nil {
		t.Fatalf("NewRouter returned error: %v", err)
	}

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, newUploadRequest(t, "/api/exports", uploadPart{field: "export", fileName: followersFileName, content: followersExportContent}))
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, recorder.Code, recorder.Body.String())
	}

	var response exportResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(response.Records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(response.Records))
	}
	expectedMetadata := matrix.BatchMetadata{
		Total:            3,
		FollowingBack:    1,
		NotFollowingBack: 1,
		Verified:         1,
		IGUserName:       "owner",
		DetectedType:     "followers",
	}
	if response.Metadata != expectedMetadata {
		t.Fatalf("expected metadata %+v, got %+v", expectedMetadata, response.Metadata)
	}
	if len(response.Buckets.Mutual) != 1 || response.Buckets.Mutual[0].UserName != "alice" {
		t.Fatalf("unexpected mutual bucket %+v", response.Buckets.Mutual)
	}
	if len(response.Buckets.Fans) != 1 || response.Buckets.Fans[0].UserName != "bob" {
		t.Fatalf("unexpected fans bucket %+v", response.Buckets.Fans)
	}
	if response.FilenameMetadata == nil || response.FilenameMetadata.Count == nil || *response.FilenameMetadata.Count != 3 {
		t.Fatalf("unexpected filename metadata %+v", response.FilenameMetadata)
	}
}

func TestParseExportEndpointErrors(t *testing.T) {
	testCases := []struct {
		name               string
		request            func(t *testing.T) *http.Request
		service            server.ExportService
		maxUploadBytes     int64
		expectedStatusCode int
		expectedError      string
	}{
		{
			name: "malformed export",
			request: func(t *testing.T) *http.Request {
				return newUploadRequest(t, "/api/exports", uploadPart{field: "export", fileName: "broken.csv", content: "username\nalice,extra\n"})
			},
			expectedStatusCode: http.StatusUnprocessableEntity,
			expectedError:      "parse export",
		},
		{
			name: "empty export",
			request: func(t *testing.T) *http.Request {
				return newUploadRequest(t, "/api/exports", uploadPart{field: "export", fileName: "empty.csv", content: ""})
			},
			expectedStatusCode: http.StatusUnprocessableEntity,
			expectedError:      "no header row",
		},
		{
			name: "missing field",
			request: func(t *testing.T) *http.Request {
				return newUploadRequest(t, "/api/exports", uploadPart{field: "file", fileName: "a.csv", content: followersExportContent})
			},
			expectedStatusCode: http.StatusBadRequest,
			expectedError:      `missing upload field "export"`,
		},
		{
			name: "not multipart",
			request: func(t *testing.T) *http.Request {
				return httptest.NewRequest(http.MethodPost, "/api/exports", strings.NewReader(followersExportContent))
			},
			expectedStatusCode: http.StatusBadRequest,
			expectedError:      "invalid upload",
		},
		{
			name: "upload too large",
			request: func(t *testing.T) *http.Request {
				return newUploadRequest(t, "/api/exports", uploadPart{field: "export", fileName: "big.csv", content: "username\n" + strings.Repeat("someone\n", 512)})
			},
			maxUploadBytes:     256,
			expectedStatusCode: http.StatusRequestEntityTooLarge,
			expectedError:      "upload exceeds 256 bytes",
		},
		{
			name: "service failure",
			request: func(t *testing.T) *http.Request {
				return newUploadRequest(t, "/api/exports", uploadPart{field: "export", fileName: "a.csv", content: followersExportContent})
			},
			service:            &exportServiceRecorder{parseError: errors.New("storage offline")},
			expectedStatusCode: http.StatusInternalServerError,
			expectedError:      "storage offline",
		},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			router, err := server.NewRouter(server.RouterConfig{Service: testCase.service, MaxUploadBytes: testCase.maxUploadBytes})
			if err != nil {
				t.Fatalf("NewRouter returned error: %v", err)
			}
			recorder := httptest.NewRecorder()
			router.ServeHTTP(recorder, testCase.request(t))
			if recorder.Code != testCase.expectedStatusCode {
				t.Fatalf("expected status %d, got %d: %s", testCase.expectedStatusCode, recorder.Code, recorder.Body.String())
			}
			var response errorResponse
			if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if !strings.Contains(response.Error, testCase.expectedError) {
				t.Fatalf("expected error containing %q, got %q", testCase.expectedError, response.Error)
			}
		})
	}
}

func TestReconcileEndpoint(t *testing.T) {
	testCases := []struct {
		name         string
		parts        []uploadPart
		expectChange bool
	}{
		{
			name: "followers and following",
			parts: []uploadPart{
				{field: "followers", fileName: followersFileName, content: followersExportContent},
				{field: "following", fileName: followingFileName, content: followingExportContent},
			},
		},
		{
			name: "with previous snapshot",
			parts: []uploadPart{
				{field: "followers", fileName: followersFileName, content: followersExportContent},
				{field: "following", fileName: followingFileName, content: followingExportContent},
				{field: "previous_followers", fileName: "older_followers.csv", content: previousExportContent},
			},
			expectChange: true,
		},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			service := &exportServiceRecorder{}
			router, err := server.NewRouter(server.RouterConfig{Service: service})
			if err != nil {
				t.Fatalf("NewRouter returned error: %v", err)
			}

			recorder := httptest.NewRecorder()
			router.ServeHTTP(recorder, newUploadRequest(t, "/api/reconcile", testCase.parts...))
			if recorder.Code != http.StatusOK {
				t.Fatalf("expected status %d, got %d: %s", http.StatusOK, recorder.Code, recorder.Body.String())
			}

			var comparison matrix.ComparisonResult
			if err := json.Unmarshal(recorder.Body.Bytes(), &comparison); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if comparison.Reconciliation == nil {
				t.Fatalf("expected reconciliation in response")
			}
			if got := userNamesOf(comparison.Reconciliation.NonFollowers); got != "dave" {
				t.Fatalf("expected non followers dave, got %q", got)
			}
			if got := userNamesOf(comparison.Reconciliation.FansBySet); got != "bob,carol" {
				t.Fatalf("expected fans by set bob,carol, got %q", got)
			}
			if service.lastInput.Following == nil {
				t.Fatalf("expected following export to reach the service")
			}

			if !testCase.expectChange {
				if comparison.Change != nil || service.lastInput.PreviousFollowers != nil {
					t.Fatalf("unexpected snapshot change %+v", comparison.Change)
				}
				return
			}
			if comparison.Change == nil {
				t.Fatalf("expected snapshot change")
			}
			if got := userNamesOf(comparison.Change.Gained); got != "bob,carol" {
				t.Fatalf("expected gained bob,carol, got %q", got)
			}
			if got := userNamesOf(comparison.Change.Lost); got != "zoe" {
				t.Fatalf("expected lost zoe, got %q", got)
			}
			if comparison.Change.NetChange != 1 {
				t.Fatalf("expected net change 1, got %d", comparison.Change.NetChange)
			}
		})
	}
}

func TestReconcileEndpointRequiresBothExports(t *testing.T) {
	service := &exportServiceRecorder{}
	router, err := server.NewRouter(server.RouterConfig{Service: service})
	if err != nil {
		t.Fatalf("NewRouter returned error: %v", err)
	}

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, newUploadRequest(t, "/api/reconcile",
		uploadPart{field: "followers", fileName: followersFileName, content: followersExportContent},
	))
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, recorder.Code)
	}
	if !strings.Contains(recorder.Body.String(), "following") {
		t.Fatalf("expected missing field to be named, got %q", recorder.Body.String())
	}
	if len(service.parsedFileNames) != 1 {
		t.Fatalf("expected only the followers export to be parsed, got %v", service.parsedFileNames)
	}
}

func newUploadRequest(t *testing.T, path string, parts ...uploadPart) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for _, part := range parts {
		partWriter, err := writer.CreateFormFile(part.field, part.fileName)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := partWriter.Write([]byte(part.content)); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	request := httptest.NewRequest(http.MethodPost, path, body)
	request.Header.Set("Content-Type", writer.FormDataContentType())
	return request
}

func userNamesOf(records []matrix.AccountRecord) string {
	names := make([]string, 0, len(records))
	for _, record := range records {
		names = append(names, record.UserName)
	}
	return strings.Join(names, ",")
}
