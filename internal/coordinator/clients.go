package coordinator

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/shoplab/order-coordination-go/pkg/api"
	"github.com/shoplab/order-coordination-go/pkg/httpx"
)

// UserClient asks the user service whether an id exists via GET /user/{id}.
type UserClient struct {
	c *httpx.Client
}

func NewUserClient(baseURL string, timeout time.Duration) *UserClient {
	return &UserClient{c: httpx.NewClient(baseURL, timeout)}
}

func (u *UserClient) Exists(ctx context.Context, userID int) (bool, error) {
	code, err := u.c.GetJSON(ctx, fmt.Sprintf("/user/%d", userID), nil)
	if err != nil {
		return false, err
	}
	switch code {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("user service status %d: %w", code, httpx.ErrUnexpectedStatus)
	}
}

// InventoryClient issues the conditional decrement via POST /product/deduct.
type InventoryClient struct {
	c *httpx.Client
}

func NewInventoryClient(baseURL string, timeout time.Duration) *InventoryClient {
	return &InventoryClient{c: httpx.NewClient(baseURL, timeout)}
}

func (i *InventoryClient) Deduct(ctx context.Context, productID, quantity int) (int, error) {
	var resp api.DeductResponse
	code, err := i.c.PostJSON(ctx, "/product/deduct", api.DeductRequest{ID: productID, Quantity: quantity}, &resp)
	if err != nil {
		return 0, err
	}
	switch code {
	case http.StatusOK:
		return resp.Remaining, nil
	case http.StatusNotFound:
		return 0, ErrProductNotFound
	case http.StatusConflict:
		return 0, ErrInsufficientStock
	default:
		return 0, fmt.Errorf("product service status %d: %w", code, httpx.ErrUnexpectedStatus)
	}
}
