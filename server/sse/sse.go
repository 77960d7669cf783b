// Package sse implements a minimal Server-Sent Events broker used to push
// workflow stats updates to connected admin dashboards.
package sse

import (
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"
)

// Broker fans events published on Notifier out to every connected client
type Broker struct {
	// Stats snapshots are pushed to this channel by the cache service
	Notifier chan []byte

	// New client connections
	newClients chan chan []byte

	// Closed client connections
	closingClients chan chan []byte

	// Client connections registry
	clients map[chan []byte]bool
	logger  *logrus.Entry
}

// NewServer instantiates a broker as SSE server
func NewServer(logger *logrus.Entry) *Broker {
	return &Broker{
		Notifier:       make(chan []byte, 1),
		newClients:     make(chan chan []byte),
		closingClients: make(chan chan []byte),
		clients:        make(map[chan []byte]bool),
		logger:         logger,
	}
}

func (broker *Broker) ServeHTTP(rw http.ResponseWriter, req *http.Request) {
	flusher, ok := rw.(http.Flusher)
	if !ok {
		http.Error(rw, "Streaming unsupported!", http.StatusInternalServerError)
		return
	}

	rw.Header().Set("Content-Type", "text/event-stream")
	rw.Header().Set("Cache-Control", "no-cache")
	rw.Header().Set("Connection", "keep-alive")
	rw.Header().Set("X-Accel-Buffering", "no")

	// Each connection registers its own message channel with the broker
	messageChan := make(chan []byte)
	broker.newClients <- messageChan

	defer func() {
		broker.closingClients <- messageChan
	}()

	// Unregister when the client goes away
	notify := req.Context().Done()
	go func() {
		<-notify
		broker.closingClients <- messageChan
	}()

	for {
		fmt.Fprintf(rw, "data: %s\n\n", <-messageChan)
		flusher.Flush()
	}
}

// Listen dispatches connection events and published stats to clients.
// onListenerJoinCallback runs for each newly connected client so it
// receives a current snapshot without waiting for the next decision.
func (broker *Broker) Listen(onListenerJoinCallback func() error) {
	log := broker.logger
	for {
		select {
		case s := <-broker.newClients:
			broker.clients[s] = true
			log.Debugf("SSE client added. %d registered clients", len(broker.clients))
			if err := onListenerJoinCallback(); err != nil {
				log.WithFields(logrus.Fields{
					"err": err.Error(),
				}).Error("SSE server unable to send initial event when listener joins")
			}
		case s := <-broker.closingClients:
			delete(broker.clients, s)
			log.Debugf("Removed SSE client. %d registered clients", len(broker.clients))
		case event := <-broker.Notifier:
			for clientMessageChan := range broker.clients {
				clientMessageChan <- event
			}
		}
	}
}
