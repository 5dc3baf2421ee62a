package stations

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"github.com/sharksmhi/ctdstations/internal/logger"
)

const tableHeader = "STATION_NAME\tLAT_DM\tLONG_DM\tWADEP\tMEDIA\tSYNONYM_NAMES\tOUT_OF_BOUNDS_RADIUS\n"

// twoStationTable has two stations 7 minutes of latitude apart.
const twoStationTable = tableHeader +
	"BY31 LANDSORTSDJ\t5533.0\t1824.0\t459\tVatten\tBY31<or>LANDSORTSDJUPET\t500\n" +
	"ÖLAND NORRA\t5540.0\t1824.0\t\t\tOland Synonym <or> N ÖLAND\t500\n"

// writeCP1252 writes text to dir/name encoded as windows-1252 and returns the path.
func writeCP1252(t *testing.T, dir, name, text string) string {
	t.Helper()
	data, err := charmap.Windows1252.NewEncoder().Bytes([]byte(text))
	require.NoError(t, err)
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, data, 0o644))
	return p
}

// testLogger returns a JSON logger writing into buf.
func testLogger(buf *bytes.Buffer) logger.Logger {
	return logger.NewSlogLogger(buf, logger.LogLevelDebug, time.UTC).Module("stations")
}

// loadBackup loads text as a cp1252 backup-only store.
func loadBackup(t *testing.T, text string, opts ...Option) *Store {
	t.Helper()
	backup := writeCP1252(t, t.TempDir(), "station.txt", text)
	opts = append([]Option{WithLogger(testLogger(&bytes.Buffer{}))}, opts...)
	store, err := Load(t.Context(), SourceConfig{BackupPath: backup}, opts...)
	require.NoError(t, err)
	return store
}

func ptr(v float64) *float64 { return &v }
