package services

import (
	"context"
	"errors"
	"time"

	"roomchat/internal/models"
	"roomchat/internal/observability"
	"roomchat/internal/repositories"
)

// HistorySink is the receiving end of a history stream, usually a live
// websocket connection.
type HistorySink interface {
	Alive() bool
	Send(event models.Event) bool
}

// HistoryStreamer delivers a room's history newest window first, each
// window in chronological order, with a pause between windows.
type HistoryStreamer struct {
	messages  repositories.MessageRepository
	senders   SenderSource
	batchSize int
	delay     time.Duration
}

func NewHistoryStreamer(messages repositories.MessageRepository, senders SenderSource, batchSize int, delay time.Duration) *HistoryStreamer {
	if batchSize <= 0 {
		batchSize = 20
	}
	return &HistoryStreamer{messages: messages, senders: senders, batchSize: batchSize, delay: delay}
}

// Stream sends messageHistoryBatch events followed by a single
// messageHistoryComplete. It stops quietly when ctx is cancelled or the sink
// goes away; nothing is sent after that point. It returns the number of
// batches delivered.
func (h *HistoryStreamer) Stream(ctx context.Context, roomID string, sink HistorySink) (int, error) {
	var cursor models.HistoryCursor
	sent := 0
	for {
		if ctx.Err() != nil || !sink.Alive() {
			return sent, nil
		}
		page, err := h.messages.ListMessagesBefore(ctx, roomID, cursor, h.batchSize)
		if err != nil {
			if ctx.Err() != nil {
				return sent, nil
			}
			return sent, storeErr(err)
		}

		if len(page) > 0 {
			cursor = models.CursorOf(page[len(page)-1])
			views, err := h.views(ctx, page)
			if err != nil {
				return sent, err
			}
			if ctx.Err() != nil || !sink.Alive() || !sink.Send(models.HistoryBatch(roomID, views)) {
				return sent, nil
			}
			sent++
			observability.IncHistoryBatch()
		}

		if len(page) < h.batchSize {
			if ctx.Err() == nil && sink.Alive() {
				sink.Send(models.HistoryComplete(roomID))
			}
			return sent, nil
		}

		if h.delay > 0 {
			timer := time.NewTimer(h.delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return sent, nil
			case <-timer.C:
			}
		}
	}
}

// Page returns one chronological page of messages older than before
// (a message id; empty means newest).
func (h *HistoryStreamer) Page(ctx context.Context, roomID, before string, limit int) ([]models.MessageView, error) {
	if limit <= 0 || limit > 100 {
		limit = h.batchSize
	}
	var cursor models.HistoryCursor
	if before != "" {
		anchor, err := h.messages.GetMessage(ctx, before)
		if err != nil {
			return nil, storeErr(err)
		}
		if anchor.RoomID != roomID {
			return nil, notFoundError(msgMessageNotFound, nil)
		}
		cursor = models.CursorOf(anchor)
	}
	page, err := h.messages.ListMessagesBefore(ctx, roomID, cursor, limit)
	if err != nil {
		return nil, storeErr(err)
	}
	return h.views(ctx, page)
}

// views resolves senders and reverses a newest-first page into chronological order.
func (h *HistoryStreamer) views(ctx context.Context, page []models.Message) ([]models.MessageView, error) {
	out := make([]models.MessageView, len(page))
	for i, msg := range page {
		sender, err := resolveSender(ctx, h.senders, msg.SenderID)
		if err != nil {
			return nil, err
		}
		out[len(page)-1-i] = msg.View(sender)
	}
	return out, nil
}

// resolveSender tolerates senders whose account no longer exists.
func resolveSender(ctx context.Context, senders SenderSource, userID string) (models.Sender, error) {
	sender, err := senders.Sender(ctx, userID)
	if errors.Is(err, repositories.ErrUserNotFound) {
		return models.Sender{ID: userID}, nil
	}
	if err != nil {
		return models.Sender{}, storeErr(err)
	}
	return sender, nil
}
