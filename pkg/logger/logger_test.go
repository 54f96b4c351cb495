package logger

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func readLines(t *testing.T, path string) []map[string]interface{} {
	t.Helper()
	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	var lines []map[string]interface{}
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var line map[string]interface{}
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &line))
		lines = append(lines, line)
	}
	require.NoError(t, scanner.Err())
	return lines
}

func TestJSONLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	log, err := NewLogger(&Config{Level: InfoLevel, Format: "json", Output: path, AppName: "trustedhands", Version: "1.0.0"})
	require.NoError(t, err)

	userID := primitive.NewObjectID()
	paymentID := primitive.NewObjectID()
	ctx := context.WithValue(context.Background(), RequestIDKey, "req-7")
	ctx = context.WithValue(ctx, UserIDKey, userID)

	log.WithContext(ctx).LogPaymentEvent(paymentID, "frozen", 1000, "INR")
	log.WithField("level", "shadowed").Warn("field collides with envelope")

	lines := readLines(t, path)
	require.Len(t, lines, 2)

	event := lines[0]
	assert.Equal(t, "info", event["level"])
	assert.Equal(t, "trustedhands", event["app"])
	assert.Equal(t, "req-7", event["request_id"])
	assert.Equal(t, userID.Hex(), event["user_id"])
	assert.Equal(t, paymentID.Hex(), event["payment_id"])
	assert.Equal(t, "payment_event", event["type"])
	assert.Equal(t, 1000.0, event["amount"])

	assert.Equal(t, "warning", lines[1]["level"])
	assert.Equal(t, "shadowed", lines[1]["fields.level"])
}

func TestLoggerLevelFiltersAndFieldsDoNotLeak(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	log, err := NewLogger(&Config{Level: ErrorLevel, Format: "json", Output: path})
	require.NoError(t, err)

	scoped := log.WithTicketID(primitive.NewObjectID())
	scoped.Info("dropped")
	scoped.Error("kept")
	log.Error("unscoped")

	lines := readLines(t, path)
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "ticket_id")
	assert.NotContains(t, lines[1], "ticket_id")
}

func TestLogAPIRequestLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	log, err := NewLogger(&Config{Level: InfoLevel, Format: "json", Output: path})
	require.NoError(t, err)

	log.LogAPIRequest("POST", "/api/v1/payments/release", 423, 0, nil)
	log.LogAPIRequest("POST", "/api/v1/payments/release", 500, 0, nil)

	lines := readLines(t, path)
	require.Len(t, lines, 2)
	assert.Equal(t, "info", lines[0]["level"])
	assert.Equal(t, "error", lines[1]["level"])
}

func TestTextFormatter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	log, err := NewLogger(&Config{Level: InfoLevel, Format: "text", Output: path, AppName: "trustedhands"})
	require.NoError(t, err)

	log.WithField("payment_id", "abc").Info("Payment event occurred")

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	line := string(raw)
	assert.True(t, strings.HasSuffix(line, "\n"))
	assert.Contains(t, line, "[INFO]")
	assert.Contains(t, line, "[trustedhands]")
	assert.Contains(t, line, "payment_id=abc")
}
