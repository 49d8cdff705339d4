package bungie

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"guardian-inventory/internal/model"
)

const profileJSON = `{
	"profile": {"data": {"userInfo": {"membershipType": 3, "membershipId": "4611686018400000000"}}},
	"profileInventory": {"data": {"items": [
		{"itemHash": 100, "itemInstanceId": "6917529000000000001", "quantity": 1, "bucketHash": 138197802}
	]}},
	"characters": {"data": {
		"2305843009301000002": {"characterId": "2305843009301000002", "classType": 1, "light": 1800},
		"2305843009301000001": {"characterId": "2305843009301000001", "classType": 0, "light": 1810}
	}},
	"characterInventories": {"data": {
		"2305843009301000001": {"items": [{"itemHash": 200, "itemInstanceId": "6917529000000000002", "quantity": 1}]}
	}},
	"characterEquipment": {"data": {
		"2305843009301000002": {"items": [{"itemHash": 300, "itemInstanceId": "6917529000000000003", "quantity": 1}]}
	}},
	"profileProgression": {"data": {"seasonalArtifact": {"powerBonus": 14}}},
	"itemComponents": {
		"instances": {"data": {
			"6917529000000000001": {"primaryStat": {"value": 1795}, "damageType": 3, "canEquip": true},
			"6917529000000000002": {"power": 1800, "locked": true}
		}},
		"stats": {"data": {"6917529000000000002": {"stats": {"4284893193": {"statHash": 4284893193, "value": 360}}}}},
		"sockets": {"data": {"6917529000000000002": {"sockets": [{"plugHash": 77, "isEnabled": true, "isVisible": true}]}}}
	}
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL, APIKey: "key", AccessToken: "token"})
}

func TestProfileDecodesSnapshot(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/profile", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("X-API-Key"))
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		w.Write([]byte(profileJSON))
	})

	snap, err := client.Profile(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, snap.MembershipType)
	require.Len(t, snap.Characters, 2)
	assert.Equal(t, "2305843009301000001", snap.Characters[0].CharacterID)
	assert.Equal(t, model.ClassTitan, snap.Characters[0].ClassType)
	assert.Len(t, snap.Vault, 1)
	assert.Len(t, snap.Inventories["2305843009301000001"], 1)
	assert.Len(t, snap.Equipment["2305843009301000002"], 1)
	assert.Equal(t, 1795, snap.Instances["6917529000000000001"].Power)
	assert.Equal(t, 1800, snap.Instances["6917529000000000002"].Power)
	assert.Equal(t, map[uint32]int{4284893193: 360}, snap.Stats["6917529000000000002"])
	assert.Len(t, snap.Sockets["6917529000000000002"], 1)
	assert.Equal(t, 14, snap.ArtifactPower)
}

func TestCatalogEndpoints(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/manifest/version":
			w.Write([]byte(`{"version": "224101.24.05.14"}`))
		case "/api/manifest/definitions/DestinyStatDefinition":
			w.Write([]byte(`{"1": {"displayProperties": {"name": "Mobility"}}}`))
		default:
			http.NotFound(w, r)
		}
	})
	ctx := context.Background()

	version, err := client.CatalogVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, "224101.24.05.14", version)

	table, err := client.CatalogTable(ctx, model.TableStat)
	require.NoError(t, err)
	assert.JSONEq(t, `{"1": {"displayProperties": {"name": "Mobility"}}}`, string(table))

	_, err = client.CatalogTable(ctx, "DestinyUnknownDefinition")
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
}

func TestTransferItemSendsMoveCall(t *testing.T) {
	var got model.MoveCall
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/actions/transfer", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"Response": 0, "ErrorCode": 1, "ErrorStatus": "Success"}`))
	})

	call := model.MoveCall{ItemHash: 100, StackSize: 1, ToVault: true, InstanceID: "i-1", CharacterID: "c-1", MembershipType: 3}
	require.NoError(t, client.TransferItem(context.Background(), call))
	assert.Equal(t, call, got)
}

func TestTransferItemPlatformFailure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ErrorCode": 1623, "ErrorStatus": "DestinyItemNotFound", "Message": "item not found"}`))
	})

	err := client.TransferItem(context.Background(), model.MoveCall{ItemHash: 1})
	var platformErr *PlatformError
	require.ErrorAs(t, err, &platformErr)
	assert.Equal(t, 1623, platformErr.Code)
}

func TestTransferItemHTTPFailure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "throttled", http.StatusTooManyRequests)
	})

	err := client.TransferItem(context.Background(), model.MoveCall{ItemHash: 1})
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusTooManyRequests, statusErr.StatusCode)
	assert.Equal(t, "throttled", statusErr.Body)
}

func TestAnnotationsRoundTrip(t *testing.T) {
	stored := `{"tags": {"i-1": "favorite"}}`
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			w.Write([]byte(stored))
		case http.MethodPut:
			var rec model.AnnotationRecord
			require.NoError(t, json.NewDecoder(r.Body).Decode(&rec))
			data, _ := json.Marshal(rec)
			stored = string(data)
			w.WriteHeader(http.StatusNoContent)
		}
	})
	ctx := context.Background()

	rec, err := client.FetchAnnotations(ctx)
	require.NoError(t, err)
	assert.Equal(t, "favorite", *rec.Tag("i-1"))
	assert.NotNil(t, rec.Notes)

	require.NoError(t, client.StoreAnnotations(ctx, rec.With("i-2", model.AnnotationNote, strPtr("god roll"))))

	rec, err = client.FetchAnnotations(ctx)
	require.NoError(t, err)
	assert.Equal(t, "god roll", *rec.Note("i-2"))
}

func strPtr(s string) *string {
	return &s
}
