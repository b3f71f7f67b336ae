package drive

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teleferry/internal/transfer"
)

// newTestClient points a Client at an httptest server for both the
// resumable upload endpoint and the Drive API surface.
func newTestClient(t *testing.T, server *httptest.Server) *Client {
	t.Helper()
	svc, err := drive.NewService(context.Background(),
		option.WithHTTPClient(server.Client()),
		option.WithEndpoint(server.URL))
	require.NoError(t, err)
	return &Client{svc: svc, hc: server.Client(), uploadURL: server.URL + "/upload/drive/v3/files"}
}

func TestCreateSession(t *testing.T) {
	var gotContentType, gotLength string
	mux := http.NewServeMux()
	var server *httptest.Server
	mux.HandleFunc("POST /upload/drive/v3/files", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "resumable", r.URL.Query().Get("uploadType"))
		gotContentType = r.Header.Get("X-Upload-Content-Type")
		gotLength = r.Header.Get("X-Upload-Content-Length")

		var meta map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&meta))
		assert.Equal(t, "report.pdf", meta["name"])
		assert.Equal(t, []any{"folder-1"}, meta["parents"])

		w.Header().Set("Location", server.URL+"/upload/session/abc")
		w.WriteHeader(http.StatusOK)
	})
	server = httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(t, server)
	sess, err := client.CreateSession(context.Background(), transfer.ObjectInfo{
		Name:     "report.pdf",
		MimeType: "application/pdf",
		Size:     100,
		Folder:   "folder-1",
	})

	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, "application/pdf", gotContentType)
	assert.Equal(t, "100", gotLength)
}

func TestCreateSessionRemoteError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"code": 403, "message": "quota exceeded"}}`, http.StatusForbidden)
	}))
	defer server.Close()

	client := newTestClient(t, server)
	_, err := client.CreateSession(context.Background(), transfer.ObjectInfo{Name: "x", Size: 1})

	require.Error(t, err)
	var rerr *transfer.RemoteError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, 403, rerr.Code)
	assert.False(t, rerr.Transient())
}

func TestSessionPushIncomplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "bytes 0-49/100", r.Header.Get("Content-Range"))
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Len(t, body, 50)

		w.Header().Set("Range", "bytes=0-49")
		w.WriteHeader(308)
	}))
	defer server.Close()

	client := newTestClient(t, server)
	sess := &session{client: client, url: server.URL, total: 100}

	confirmed, err := sess.Push(context.Background(), 0, make([]byte, 50))

	require.NoError(t, err)
	assert.Equal(t, int64(50), confirmed)
}

func TestSessionPushPartialConfirmation(t *testing.T) {
	// The destination may confirm fewer bytes than were sent.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Range", "bytes=0-29")
		w.WriteHeader(308)
	}))
	defer server.Close()

	client := newTestClient(t, server)
	sess := &session{client: client, url: server.URL, total: 100}

	confirmed, err := sess.Push(context.Background(), 0, make([]byte, 50))

	require.NoError(t, err)
	assert.Equal(t, int64(30), confirmed)
}

func TestSessionPushCompletes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "bytes 50-99/100", r.Header.Get("Content-Range"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id": "obj-9", "name": "report.pdf"}`)
	}))
	defer server.Close()

	client := newTestClient(t, server)
	sess := &session{client: client, url: server.URL, total: 100}

	confirmed, err := sess.Push(context.Background(), 50, make([]byte, 50))

	require.NoError(t, err)
	assert.Equal(t, int64(100), confirmed)
	assert.Equal(t, "obj-9", sess.fileID)
}

func TestSessionPushZeroByteObject(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "bytes */0", r.Header.Get("Content-Range"))
		fmt.Fprint(w, `{"id": "empty-1", "name": "empty.bin"}`)
	}))
	defer server.Close()

	client := newTestClient(t, server)
	sess := &session{client: client, url: server.URL, total: 0}

	confirmed, err := sess.Push(context.Background(), 0, nil)

	require.NoError(t, err)
	assert.Equal(t, int64(0), confirmed)
	assert.Equal(t, "empty-1", sess.fileID)
}

func TestSessionPushServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"code": 503, "message": "backend overloaded"}}`, http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := newTestClient(t, server)
	sess := &session{client: client, url: server.URL, total: 100}

	_, err := sess.Push(context.Background(), 0, make([]byte, 50))

	require.Error(t, err)
	assert.True(t, transfer.IsTransient(err), "5xx destination errors are transient")
}

func TestSessionOffsetQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "bytes */100", r.Header.Get("Content-Range"))
		w.Header().Set("Range", "bytes=0-74")
		w.WriteHeader(308)
	}))
	defer server.Close()

	client := newTestClient(t, server)
	sess := &session{client: client, url: server.URL, total: 100}

	confirmed, err := sess.Offset(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(75), confirmed)
}

func TestSessionOffsetNothingAccepted(t *testing.T) {
	// No Range header on a 308 means no bytes have been accepted yet.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(308)
	}))
	defer server.Close()

	client := newTestClient(t, server)
	sess := &session{client: client, url: server.URL, total: 100}

	confirmed, err := sess.Offset(context.Background())

	require.NoError(t, err)
	assert.Zero(t, confirmed)
}

func TestSessionFinalize(t *testing.T) {
	mux := http.NewServeMux()
	var permissionSet bool
	mux.HandleFunc("POST /files/obj-9/permissions", func(w http.ResponseWriter, r *http.Request) {
		var perm map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&perm))
		assert.Equal(t, "reader", perm["role"])
		assert.Equal(t, "anyone", perm["type"])
		permissionSet = true
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id": "perm-1"}`)
	})
	mux.HandleFunc("GET /files/obj-9", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id": "obj-9", "name": "report.pdf", "webViewLink": "https://drive.example/obj-9"}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(t, server)
	sess := &session{client: client, url: server.URL, total: 100, fileID: "obj-9"}

	obj, err := sess.Finalize(context.Background())

	require.NoError(t, err)
	assert.True(t, permissionSet)
	assert.Equal(t, "obj-9", obj.ID)
	assert.Equal(t, "report.pdf", obj.Name)
	assert.Equal(t, "https://drive.example/obj-9", obj.Link)
}

func TestSessionFinalizeBeforeCompletion(t *testing.T) {
	sess := &session{total: 100}
	_, err := sess.Finalize(context.Background())
	require.Error(t, err)
}

func TestEnsureFolder(t *testing.T) {
	mux := http.NewServeMux()
	created := false
	mux.HandleFunc("GET /files", func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Query().Get("q"), folderMimeType)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"files": []}`)
	})
	mux.HandleFunc("POST /files", func(w http.ResponseWriter, r *http.Request) {
		var meta map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&meta))
		assert.Equal(t, "Telegram Files", meta["name"])
		assert.Equal(t, folderMimeType, meta["mimeType"])
		created = true
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id": "folder-7"}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(t, server)
	id, err := client.EnsureFolder(context.Background(), "Telegram Files")

	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "folder-7", id)
}

func TestEnsureFolderExisting(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"files": [{"id": "folder-3", "name": "Telegram Files"}]}`)
	}))
	defer server.Close()

	client := newTestClient(t, server)
	id, err := client.EnsureFolder(context.Background(), "Telegram Files")

	require.NoError(t, err)
	assert.Equal(t, "folder-3", id)
}

func TestParseRangeHeader(t *testing.T) {
	tests := []struct {
		value   string
		want    int64
		wantErr bool
	}{
		{value: "", want: 0},
		{value: "bytes=0-0", want: 1},
		{value: "bytes=0-8388607", want: 8388608},
		{value: "garbage", wantErr: true},
		{value: "bytes=0-x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			got, err := parseRangeHeader(tt.value)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
