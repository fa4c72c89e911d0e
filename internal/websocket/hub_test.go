package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jlebervet/mail-manager/internal/models"
)

func newTestClient(hub *Hub) *Client {
	return &Client{hub: hub, send: make(chan []byte, 16)}
}

func receiveMessage(t *testing.T, client *Client) WSMessage {
	t.Helper()
	select {
	case data := <-client.send:
		var msg WSMessage
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg
	case <-time.After(time.Second):
		t.Fatal("no message delivered")
		return WSMessage{}
	}
}

func assertNoMessage(t *testing.T, client *Client) {
	t.Helper()
	select {
	case data := <-client.send:
		t.Fatalf("unexpected message: %s", data)
	case <-time.After(50 * time.Millisecond):
	}
}

func testMail(serviceID string) *models.Mail {
	return &models.Mail{
		ID:                "mail-1",
		Reference:         "MAIL-2025-00001",
		Direction:         models.DirectionIncoming,
		Subject:           "Demande de permis",
		Status:            models.StatusReceived,
		ServiceID:         serviceID,
		ServiceName:       "Urbanisme",
		CorrespondentName: "Marie Dupont",
		CreatedAt:         time.Now(),
	}
}

func TestHub_DeliversToServiceSubscribers(t *testing.T) {
	// Arrange
	hub := NewHub(nil)
	go hub.Run()

	subscriber := newTestClient(hub)
	other := newTestClient(hub)
	hub.Register(subscriber)
	hub.Register(other)
	hub.Subscribe(subscriber, "svc-1")
	hub.Subscribe(other, "svc-2")

	// Act
	hub.MailCreated(testMail("svc-1"))

	// Assert
	msg := receiveMessage(t, subscriber)
	assert.Equal(t, MessageTypeMailCreated, msg.Type)
	assert.Equal(t, "svc-1", msg.ServiceID)
	assertNoMessage(t, other)
}

func TestHub_FirehoseReceivesEveryEvent(t *testing.T) {
	// Arrange: empty service ID subscribes to everything
	hub := NewHub(nil)
	go hub.Run()

	firehose := newTestClient(hub)
	hub.Register(firehose)
	hub.Subscribe(firehose, "")

	// Act
	hub.MailCreated(testMail("svc-1"))
	hub.MailStatusChanged(testMail("svc-2"))

	// Assert
	first := receiveMessage(t, firehose)
	assert.Equal(t, MessageTypeMailCreated, first.Type)
	second := receiveMessage(t, firehose)
	assert.Equal(t, MessageTypeStatusChanged, second.Type)
}

func TestHub_EventCarriesMailPayload(t *testing.T) {
	// Arrange
	hub := NewHub(nil)
	go hub.Run()

	subscriber := newTestClient(hub)
	hub.Register(subscriber)
	hub.Subscribe(subscriber, "svc-1")

	// Act
	hub.MailStatusChanged(testMail("svc-1"))

	// Assert
	msg := receiveMessage(t, subscriber)
	payload, ok := msg.Mail.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "MAIL-2025-00001", payload["reference"])
	assert.Equal(t, "received", payload["status"])
	assert.Equal(t, "Urbanisme", payload["service_name"])
}

func TestHub_UnsubscribeStopsDelivery(t *testing.T) {
	// Arrange
	hub := NewHub(nil)
	go hub.Run()

	subscriber := newTestClient(hub)
	hub.Register(subscriber)
	hub.Subscribe(subscriber, "svc-1")
	hub.Unsubscribe(subscriber, "svc-1")

	// Act
	hub.MailCreated(testMail("svc-1"))

	// Assert
	assertNoMessage(t, subscriber)
}
