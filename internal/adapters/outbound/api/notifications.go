package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
)

// Notifications fetches one page of the user's notifications. The backend
// returns either a Spring page object or a bare array; both are accepted.
func (c *Client) Notifications(ctx context.Context, page, size int) ([]Notification, error) {
	query := url.Values{
		"page": {strconv.Itoa(page)},
		"size": {strconv.Itoa(size)},
	}

	body, err := c.do(ctx, "GET", "/notifications", query, nil)
	if err != nil {
		return nil, err
	}

	var paged struct {
		Content []Notification `json:"content"`
	}
	if err := json.Unmarshal(body, &paged); err == nil && paged.Content != nil {
		return paged.Content, nil
	}

	var items []Notification
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("unmarshal notifications: %w", err)
	}
	return items, nil
}

func (c *Client) UnreadCount(ctx context.Context) (int, error) {
	var resp struct {
		Count int `json:"count"`
	}
	if err := c.get(ctx, "/notifications/unread-count", nil, &resp); err != nil {
		return 0, err
	}
	return resp.Count, nil
}

func (c *Client) MarkNotificationRead(ctx context.Context, id int64) error {
	return c.put(ctx, fmt.Sprintf("/notifications/%d/read", id), nil, nil, nil)
}

func (c *Client) MarkAllNotificationsRead(ctx context.Context) error {
	return c.put(ctx, "/notifications/read-all", nil, nil, nil)
}
