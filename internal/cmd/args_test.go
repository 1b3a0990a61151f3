package cmd

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	goferrors "github.com/fulmenhq/gofulmen/errors"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	apperrors "github.com/parcelops/hubsync/internal/errors"
	"github.com/parcelops/hubsync/internal/hubspot"
)

func TestParseAssignments(t *testing.T) {
	props, err := parseAssignments([]string{"dealname=Acme renewal", "amount=1200", "note=a=b", "closedate="})
	require.NoError(t, err)
	require.Equal(t, map[string]string{
		"dealname":  "Acme renewal",
		"amount":    "1200",
		"note":      "a=b",
		"closedate": "",
	}, props)

	_, err = parseAssignments([]string{"novalue"})
	require.ErrorIs(t, err, hubspot.ErrInvalidInput)

	_, err = parseAssignments([]string{"=x"})
	require.ErrorIs(t, err, hubspot.ErrInvalidInput)

	_, err = parseAssignments([]string{"a=1", "a=2"})
	require.ErrorIs(t, err, hubspot.ErrInvalidInput)
}

func TestParseDue(t *testing.T) {
	now := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

	due, err := parseDue("", now)
	require.NoError(t, err)
	require.True(t, due.IsZero())

	due, err = parseDue("2026-11-02T09:00:00Z", now)
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, 11, 2, 9, 0, 0, 0, time.UTC), due)

	due, err = parseDue("2026-11-02", now)
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, 11, 2, 0, 0, 0, 0, time.UTC), due)

	due, err = parseDue("48h", now)
	require.NoError(t, err)
	require.Equal(t, now.Add(48*time.Hour), due)

	_, err = parseDue("-1h", now)
	require.ErrorIs(t, err, hubspot.ErrInvalidInput)

	_, err = parseDue("next tuesday", now)
	require.ErrorIs(t, err, hubspot.ErrInvalidInput)
}

func TestParseObjectType(t *testing.T) {
	objectType, err := parseObjectType(" Deals ")
	require.NoError(t, err)
	require.Equal(t, hubspot.ObjectDeals, objectType)

	_, err = parseObjectType("tickets")
	require.ErrorIs(t, err, hubspot.ErrInvalidInput)
}

func TestReadBatchUpdates(t *testing.T) {
	cmd := &cobra.Command{}

	path := filepath.Join(t.TempDir(), "updates.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
- id: "1001"
  properties:
    dealstage: closedwon
- id: "1002"
  properties:
    amount: "2500"
`), 0o600))

	updates, err := readBatchUpdates(cmd, path)
	require.NoError(t, err)
	require.Equal(t, []hubspot.BatchUpdate{
		{ID: "1001", Properties: map[string]string{"dealstage": "closedwon"}},
		{ID: "1002", Properties: map[string]string{"amount": "2500"}},
	}, updates)

	cmd.SetIn(bytes.NewBufferString("- id: \"7\"\n  properties: {amount: \"1\"}\n"))
	updates, err = readBatchUpdates(cmd, "-")
	require.NoError(t, err)
	require.Len(t, updates, 1)

	_, err = readBatchUpdates(cmd, "")
	require.ErrorIs(t, err, hubspot.ErrInvalidInput)

	cmd.SetIn(bytes.NewBufferString("- properties: {amount: \"1\"}\n"))
	_, err = readBatchUpdates(cmd, "-")
	require.ErrorIs(t, err, hubspot.ErrInvalidInput)

	cmd.SetIn(bytes.NewBufferString("[]"))
	_, err = readBatchUpdates(cmd, "-")
	require.ErrorIs(t, err, hubspot.ErrInvalidInput)
}

func TestWriteFailure(t *testing.T) {
	var buf bytes.Buffer
	writeFailure(&buf, "Command failed", errors.New("plain"))
	require.Equal(t, "FATAL: Command failed: plain\n", buf.String())

	buf.Reset()
	envelope := goferrors.NewErrorEnvelope(apperrors.CodeNotFound, "no such deal").WithCorrelationID("corr-1")
	writeFailure(&buf, "Command failed", envelope)
	require.Contains(t, buf.String(), "[NOT_FOUND]: no such deal")
	require.Contains(t, buf.String(), "Correlation: corr-1")

	buf.Reset()
	writeFailure(&buf, "Command failed", nil)
	require.Equal(t, "FATAL: Command failed\n", buf.String())
}
