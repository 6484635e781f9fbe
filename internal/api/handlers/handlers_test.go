package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/coachpackets/internal/adapters/events"
	"github.com/zatekoja/coachpackets/internal/adapters/memory"
	"github.com/zatekoja/coachpackets/internal/adapters/providers/templatefs"
	"github.com/zatekoja/coachpackets/internal/api/handlers"
	"github.com/zatekoja/coachpackets/internal/application/services"
	"github.com/zatekoja/coachpackets/internal/domain/entities"
	"github.com/zatekoja/coachpackets/internal/domain/providers"
	"github.com/zatekoja/coachpackets/pkg/config"
	"github.com/zatekoja/coachpackets/pkg/retry"
)

type testServer struct {
	clients *memory.ClientStore
	packets *memory.PacketStore
	bus     providers.EventBus
	queue   *services.PacketQueue
	mux     *http.ServeMux
	sse     *handlers.SSEHandler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	builtin, err := templatefs.NewBuiltinStore()
	require.NoError(t, err)

	s := &testServer{
		clients: memory.NewClientStore(),
		packets: memory.NewPacketStore(),
		bus:     events.NewMemoryEventBus(),
	}
	audit := memory.NewAuditStore()

	routing := services.NewRoutingService(s.packets, s.bus)
	retrySvc := services.NewRetryService(s.packets, audit, retry.PacketConfig())
	errorHandler := services.NewErrorHandler(s.packets, audit, nil)
	orchestrator := services.NewPacketOrchestrator(services.OrchestratorDeps{
		ClientRepo:   s.clients,
		PacketRepo:   s.packets,
		Resolver:     services.NewTemplateResolver(builtin),
		Enrichers:    services.NewEnricherRegistry(services.DefaultEnrichers()...),
		ErrorHandler: errorHandler,
		EventBus:     s.bus,
	})
	s.queue = services.NewPacketQueue(services.QueueDeps{
		PacketRepo:   s.packets,
		Processor:    orchestrator,
		ErrorHandler: errorHandler,
		Retry:        retrySvc,
		EventBus:     s.bus,
	}, config.QueueConfig{BatchSize: 10, Concurrency: 1, ProcessingTimeout: 5 * time.Second})

	packetSvc := services.NewPacketService(s.packets)
	intake := handlers.NewIntakeHandler(services.NewIntakeService(s.clients, routing))
	packetHandler := handlers.NewPacketHandler(s.clients, routing, orchestrator, packetSvc)
	admin := handlers.NewAdminHandler(services.NewAdminService(s.packets, audit, retrySvc, s.bus), packetSvc)
	s.sse = handlers.NewSSEHandler(s.bus).WithHeartbeat(time.Hour)

	s.mux = http.NewServeMux()
	s.mux.HandleFunc("POST /api/intake", intake.SubmitIntake)
	s.mux.HandleFunc("POST /api/clients/{id}/packets/route", packetHandler.RoutePackets)
	s.mux.HandleFunc("POST /api/clients/{id}/packets/{type}/generate", packetHandler.GeneratePacket)
	s.mux.HandleFunc("GET /api/clients/{id}/packets", packetHandler.ListClientPackets)
	s.mux.HandleFunc("GET /api/clients/{id}/packets/events", s.sse.StreamClientPackets)
	s.mux.HandleFunc("GET /api/packets/{id}", packetHandler.GetPacket)
	s.mux.HandleFunc("GET /api/admin/packets/failed", admin.ListFailed)
	s.mux.HandleFunc("GET /api/admin/packets/{id}", admin.GetPacket)
	s.mux.HandleFunc("GET /api/admin/packets/{id}/audit", admin.History)
	s.mux.HandleFunc("POST /api/admin/packets/{id}/retry", admin.RetryPacket)
	s.mux.HandleFunc("PUT /api/admin/packets/{id}/content", admin.EditContent)
	s.mux.HandleFunc("POST /api/admin/packets/{id}/regenerate", admin.Regenerate)
	return s
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	s.mux.ServeHTTP(w, req)
	return w
}

func (s *testServer) addClient(id string) {
	s.clients.Put(&entities.Client{
		ID:             id,
		OwnerID:        "owner-" + id,
		Name:           "Jane Doe",
		Classification: entities.ClassificationNutritionOnly,
		Answers:        map[string]interface{}{"age": 30, "weight": 150, "height": 66, "goal": "lose fat"},
	})
}

func decode(t *testing.T, w *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(w.Body).Decode(dst))
}

func TestIntakeHandler_SubmitIntake(t *testing.T) {
	t.Run("creates client and packets", func(t *testing.T) {
		s := newTestServer(t)
		w := s.do(t, http.MethodPost, "/api/intake", map[string]interface{}{
			"owner_id":       "user-1",
			"name":           "Sam Rivera",
			"classification": "NUTRITION_ONLY",
			"answers":        map[string]interface{}{"age": 30, "weight": 150, "height": 66, "goal": "lose fat"},
		})

		assert.Equal(t, http.StatusCreated, w.Code)
		var result services.IntakeResult
		decode(t, w, &result)
		assert.NotEmpty(t, result.Client.ID)
		assert.Equal(t, []entities.DocumentType{entities.DocumentTypeNutrition}, result.Routing.DocumentTypes)
	})

	t.Run("missing answers", func(t *testing.T) {
		s := newTestServer(t)
		w := s.do(t, http.MethodPost, "/api/intake", map[string]interface{}{
			"owner_id":       "user-1",
			"name":           "Sam Rivera",
			"classification": "NUTRITION_ONLY",
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		var body map[string]string
		decode(t, w, &body)
		assert.Contains(t, body["error"], "missing required answers")
	})

	t.Run("malformed body", func(t *testing.T) {
		s := newTestServer(t)
		req := httptest.NewRequest(http.MethodPost, "/api/intake", bytes.NewBufferString("{"))
		w := httptest.NewRecorder()
		s.mux.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestPacketHandler_RouteAndList(t *testing.T) {
	s := newTestServer(t)
	s.addClient("c1")

	w := s.do(t, http.MethodPost, "/api/clients/c1/packets/route", nil)
	assert.Equal(t, http.StatusCreated, w.Code)

	w = s.do(t, http.MethodPost, "/api/clients/c1/packets/route", nil)
	assert.Equal(t, http.StatusOK, w.Code, "second routing creates nothing")

	w = s.do(t, http.MethodGet, "/api/clients/c1/packets", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Packets []*entities.Packet `json:"packets"`
		Count   int                `json:"count"`
	}
	decode(t, w, &list)
	require.Equal(t, 1, list.Count)
	assert.Equal(t, entities.PacketStatusPending, list.Packets[0].Status)
	assert.Nil(t, list.Packets[0].Content)

	w = s.do(t, http.MethodPost, "/api/clients/ghost/packets/route", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPacketHandler_GeneratePacket(t *testing.T) {
	s := newTestServer(t)
	s.addClient("c1")

	w := s.do(t, http.MethodPost, "/api/clients/c1/packets/nutrition/generate", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		DocumentType entities.DocumentType `json:"document_type"`
		Content      *entities.Content     `json:"content"`
	}
	decode(t, w, &body)
	assert.Equal(t, entities.DocumentTypeNutrition, body.DocumentType)
	require.NotNil(t, body.Content)
	assert.Equal(t, "Nutrition Plan for Jane Doe", body.Content.Title)

	list, _ := s.packets.ListByClient(context.Background(), "c1")
	assert.Empty(t, list, "generation is not persisted")

	w = s.do(t, http.MethodPost, "/api/clients/c1/packets/poetry/generate", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/clients/ghost/packets/nutrition/generate", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPacketHandler_GetPacket_HidesFailure(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	w := s.do(t, http.MethodPost, "/api/clients/ghost/packets/route", nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	_, err := services.NewRoutingService(s.packets, nil).RoutePackets(ctx, "ghost", entities.ClassificationNutritionOnly, nil)
	require.NoError(t, err)
	_, err = s.queue.RunCycle(ctx)
	require.NoError(t, err)
	list, _ := s.packets.ListByClient(ctx, "ghost")
	require.Len(t, list, 1)
	id := list[0].ID

	w = s.do(t, http.MethodGet, "/api/packets/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var view entities.Packet
	decode(t, w, &view)
	assert.Equal(t, entities.PacketStatusPending, view.Status)
	assert.Nil(t, view.LastError)

	w = s.do(t, http.MethodGet, "/api/admin/packets/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var full entities.Packet
	decode(t, w, &full)
	assert.Equal(t, entities.PacketStatusFailed, full.Status)
	require.NotNil(t, full.ErrorKind)
	assert.Equal(t, entities.ErrorKindData, *full.ErrorKind)

	w = s.do(t, http.MethodGet, "/api/packets/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminHandler_Workflow(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	_, err := services.NewRoutingService(s.packets, nil).RoutePackets(ctx, "c1", entities.ClassificationNutritionOnly, nil)
	require.NoError(t, err)
	_, err = s.queue.RunCycle(ctx)
	require.NoError(t, err)
	list, _ := s.packets.ListByClient(ctx, "c1")
	id := list[0].ID

	w := s.do(t, http.MethodGet, "/api/admin/packets/failed", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var failed struct {
		Count int `json:"count"`
	}
	decode(t, w, &failed)
	assert.Equal(t, 1, failed.Count)

	w = s.do(t, http.MethodPost, "/api/admin/packets/"+id+"/retry?reset=maybe", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	s.addClient("c1")
	w = s.do(t, http.MethodPost, "/api/admin/packets/"+id+"/retry?reset=true", nil)
	require.Equal(t, http.StatusAccepted, w.Code)
	var retried entities.Packet
	decode(t, w, &retried)
	assert.Equal(t, entities.PacketStatusPending, retried.Status)
	assert.Zero(t, retried.RetryCount)

	w = s.do(t, http.MethodPost, "/api/admin/packets/"+id+"/regenerate", nil)
	assert.Equal(t, http.StatusConflict, w.Code, "pending packets cannot be regenerated")

	_, err = s.queue.RunCycle(ctx)
	require.NoError(t, err)

	w = s.do(t, http.MethodPost, "/api/admin/packets/"+id+"/retry", nil)
	assert.Equal(t, http.StatusConflict, w.Code, "ready packets cannot be retried")

	w = s.do(t, http.MethodPut, "/api/admin/packets/"+id+"/content", map[string]interface{}{
		"edited_by": "coach@example.com",
		"content": entities.Content{
			Title:    "Edited",
			Sections: []entities.Section{entities.ListSection("tips", "Tips", "Sleep 8 hours")},
		},
	})
	require.Equal(t, http.StatusOK, w.Code)
	var edited entities.Packet
	decode(t, w, &edited)
	assert.Equal(t, entities.GenerationMethodManual, edited.GenerationMethod)
	assert.Equal(t, 2, edited.Version)

	w = s.do(t, http.MethodPut, "/api/admin/packets/"+id+"/content", map[string]interface{}{"edited_by": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/admin/packets/"+id+"/regenerate", nil)
	require.Equal(t, http.StatusAccepted, w.Code)
	var regenerated entities.Packet
	decode(t, w, &regenerated)
	assert.Equal(t, 3, regenerated.Version)

	w = s.do(t, http.MethodGet, "/api/admin/packets/"+id+"/audit", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var history struct {
		Entries []*entities.AuditEntry `json:"entries"`
	}
	decode(t, w, &history)
	require.NotEmpty(t, history.Entries)
	assert.Equal(t, entities.AuditPacketRegenerate, history.Entries[0].Action)
}
