package logger

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteRoutesByLevel(t *testing.T) {
	var info, errs bytes.Buffer
	log := NewLogger(&info, &errs, 8)
	log.Write(NewMessage(CRAWLER_LAYER, INFO, "fetched %d pages", 3))
	log.Write(NewMessage(SERVER_LAYER, CRITICAL_ERROR, "store closed\n"))
	log.Close()

	assert.True(t, strings.HasSuffix(info.String(), " INFO: fetched 3 pages on layer: crawler\n"), info.String())
	assert.True(t, strings.HasSuffix(errs.String(), " CRITICAL_ERROR: store closed on layer: server\n"), errs.String())
}

func TestWriteAfterCloseIsDropped(t *testing.T) {
	var info bytes.Buffer
	log := NewLogger(&info, &info, 8)
	log.Close()

	require.NotPanics(t, func() {
		log.Write(NewMessage(MAIN_LAYER, INFO, "late"))
	})
	log.Close()
	assert.Empty(t, info.String())
}

func TestFullBufferDropsMessage(t *testing.T) {
	log := &Logger{ch: make(chan message), done: make(chan struct{}), mu: new(sync.RWMutex)}
	var dropped []string
	log.dropped = func(msg message) { dropped = append(dropped, msg.text) }

	log.Write(NewMessage(MAIN_LAYER, DEBUG, "nobody reads"))
	assert.Equal(t, []string{"nobody reads"}, dropped)
}
