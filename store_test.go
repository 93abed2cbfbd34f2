package x402mint

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStoreRoundTrip(t *testing.T) {
	store := testStore(t)

	rec := SettlementRecord{
		ID:        "abc123",
		Payer:     "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU",
		USD:       "10.5",
		Token:     "USDC",
		Amount:    10_500_000,
		Signature: "5j7s6NiJS3JAkvgkoc18WVAsiSaci2pxB2A6ueCJP4tprA2TFg9wSyTLeYouxPBJEMzJinENTkpA52YStRW5Dia7",
		Slot:      1234,
		Time:      time.Now().Unix(),
		Status:    StatusDone,
	}
	require.NoError(t, store.SaveRecord(rec))

	got, err := store.LoadRecord("abc123")
	require.NoError(t, err)
	require.Equal(t, rec, got)
}

func TestStoreMissingRecord(t *testing.T) {
	store := testStore(t)
	_, err := store.LoadRecord("nope")
	require.Error(t, err)
}

func TestStoreUpsert(t *testing.T) {
	store := testStore(t)

	rec := SettlementRecord{ID: "k1", Status: StatusPending, Time: 1}
	require.NoError(t, store.SaveRecord(rec))

	rec.Status = StatusDone
	rec.Signature = "sig"
	require.NoError(t, store.SaveRecord(rec))

	got, err := store.LoadRecord("k1")
	require.NoError(t, err)
	require.Equal(t, StatusDone, got.Status)
	require.Equal(t, "sig", got.Signature)
}

func TestStoreListNewestFirst(t *testing.T) {
	store := testStore(t)

	for i, id := range []string{"old", "mid", "new"} {
		require.NoError(t, store.SaveRecord(SettlementRecord{
			ID:     id,
			Time:   int64(100 + i),
			Status: StatusDone,
		}))
	}

	records, err := store.ListRecords(2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "new", records[0].ID)
	require.Equal(t, "mid", records[1].ID)
}
