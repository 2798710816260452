package logger

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

type messageType int

const (
	INFO messageType = iota
	DEBUG
	ERROR
	CRITICAL_ERROR
)

var levelNames = map[messageType]string{
	INFO:           "INFO",
	DEBUG:          "DEBUG",
	ERROR:          "ERROR",
	CRITICAL_ERROR: "CRITICAL_ERROR",
}

type layer int

const (
	CRAWLER_LAYER layer = iota
	REPOSITORY_LAYER
	SEARCHER_LAYER
	SERVER_LAYER
	MAIN_LAYER
)

var layerNames = map[layer]string{
	CRAWLER_LAYER:    "crawler",
	REPOSITORY_LAYER: "repository",
	SEARCHER_LAYER:   "searcher",
	SERVER_LAYER:     "server",
	MAIN_LAYER:       "main",
}

// Logger formats and writes messages on its own goroutine. Write never
// blocks: a full buffer or a closed logger drops the message.
type Logger struct {
	ch 		chan message
	done 	chan struct{}
	mu 		*sync.RWMutex
	closed 	bool
	dropped func(message)
}

type message struct {
	text 	string
	t 		messageType
	layer 	layer
}

func NewLogger(info, errs io.Writer, cap int) *Logger {
	log := &Logger{
		ch: 	make(chan message, cap),
		done: 	make(chan struct{}),
		mu: 	new(sync.RWMutex),
		dropped: func(msg message) {
			fmt.Printf("log channel full, dropping log: %s\n", msg.text)
		},
	}
	go log.run(info, errs)
	return log
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	log := NewLogger(io.Discard, io.Discard, 64)
	log.dropped = func(message) {}
	return log
}

func (log *Logger) run(info, errs io.Writer) {
	defer close(log.done)
	for msg := range log.ch {
		out := info
		if msg.t == ERROR || msg.t == CRITICAL_ERROR {
			out = errs
		}
		out.Write(msg.format(time.Now()))
	}
}

func (msg message) format(at time.Time) []byte {
	return fmt.Appendf(nil, "%s %s: %s on layer: %s\n",
		at.Local().Format("2006-01-02 15:04:05"), levelNames[msg.t],
		strings.TrimRight(msg.text, "\n"), layerNames[msg.layer])
}

func (log *Logger) Write(msg message) {
	log.mu.RLock()
	defer log.mu.RUnlock()
	if log.closed {
		return
	}
	select {
	case log.ch <- msg:
	default:
		log.dropped(msg)
	}
}

// Close flushes buffered messages. Writes after Close are ignored.
func (log *Logger) Close() {
	log.mu.Lock()
	if !log.closed {
		log.closed = true
		close(log.ch)
	}
	log.mu.Unlock()
	<-log.done
}

func NewMessage(layer layer, Type messageType, format string, v ...any) message {
	return message{
		text: fmt.Sprintf(format, v...),
		layer: layer,
		t: Type,
	}
}
