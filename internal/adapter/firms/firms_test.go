package firms

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `latitude,longitude,bright_ti4,scan,track,acq_date,acq_time,satellite,instrument,confidence,version,bright_ti5,frp,daynight
42.17834,24.81223,338.62,0.39,0.36,2025-08-01,1048,N,VIIRS,n,2.0NRT,297.14,6.35,D

41.93977, 25.57104,329.15,0.45,0.39,2025-08-01,949,N,VIIRS,h,2.0NRT,299.30,,N
,,310.00,0.38,0.36,2025-08-02,2335,N,VIIRS,n,2.0NRT,282.90,1.22,N
42.9,23.79,325.00
`

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestReadRecords(t *testing.T) {
	recs, err := ReadRecords(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, "42.17834", recs[0].Latitude)
	assert.Equal(t, "24.81223", recs[0].Longitude)
	assert.Equal(t, "338.62", recs[0].BrightTI4)
	assert.Equal(t, "2025-08-01", recs[0].AcqDate)
	assert.Equal(t, "1048", recs[0].AcqTime)
	assert.Equal(t, "VIIRS", recs[0].Instrument)
	assert.Equal(t, "2.0NRT", recs[0].Version)
	assert.Equal(t, "6.35", recs[0].FRP)

	assert.Equal(t, "25.57104", recs[1].Longitude, "leading space is trimmed")
	assert.Empty(t, recs[1].FRP)
}

func TestReadRecords_Empty(t *testing.T) {
	recs, err := ReadRecords(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, recs)

	recs, err = ReadRecords(strings.NewReader("latitude,longitude\n"))
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestReadRecords_ReorderedColumns(t *testing.T) {
	csv := "frp,daynight,longitude,latitude\n12.5,D,25.1,42.3\n"
	recs, err := ReadRecords(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "42.3", recs[0].Latitude)
	assert.Equal(t, "25.1", recs[0].Longitude)
	assert.Equal(t, "12.5", recs[0].FRP)
	assert.Empty(t, recs[0].BrightTI4)
}

func TestDetections(t *testing.T) {
	recs, err := ReadRecords(strings.NewReader(sampleCSV + "abc,25.0,1,1,1,2025-08-01,1000,N,VIIRS,n,2,1,1,D\n"))
	require.NoError(t, err)
	require.Len(t, recs, 3)

	dets, dropped := Detections(recs)
	assert.Equal(t, 1, dropped)
	require.Len(t, dets, 2)

	assert.InDelta(t, 6.35, dets[0].FRP, 1e-9)
	assert.Equal(t, "0949", dets[1].AcqTime)
	assert.Equal(t, "h", dets[1].Confidence)
	assert.Zero(t, dets[1].FRP)
	assert.Equal(t, "N", dets[1].DayNight)
}

func TestReadRecords_Fixture(t *testing.T) {
	f, err := os.Open(filepath.Join("..", "..", "..", "data", "mock", "firms_viirs_snpp_bulgaria.csv"))
	require.NoError(t, err)
	defer f.Close()

	recs, err := ReadRecords(f)
	require.NoError(t, err)
	assert.Len(t, recs, 14)
}

func TestClient_FetchDetections(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte(sampleCSV))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second, discardLogger())
	dets, err := c.FetchDetections(context.Background())
	require.NoError(t, err)
	assert.Len(t, dets, 2)
}

func TestClient_FetchRecords_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("Invalid MAP_KEY."))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second, discardLogger())
	_, err := c.FetchRecords(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
	assert.Contains(t, err.Error(), "Invalid MAP_KEY")
}

func TestBulgariaAreaURL(t *testing.T) {
	assert.Equal(t,
		"https://firms.modaps.eosdis.nasa.gov/api/area/csv/KEY/VIIRS_SNPP_NRT/22,41,28,44/2",
		BulgariaAreaURL("KEY", 2))
}
