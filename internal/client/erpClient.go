package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// ErpGateway is the outbound surface the services depend on. Every call
// is bearer-authenticated; a 401 triggers exactly one refresh-and-retry.
type ErpGateway interface {
	GetOrder(ctx context.Context, account string, orderID int64) (*RemoteOrder, json.RawMessage, error)
	CreateOrder(ctx context.Context, account string, order *OrderUpsert) (*CreatedOrder, error)
	UpdateOrder(ctx context.Context, account string, orderID int64, order *OrderUpsert) error
	DeleteOrder(ctx context.Context, account string, orderID int64) error
	UpdateOrderStatus(ctx context.Context, account string, orderID int64, statusID int32) error
	ListOrdersPage(ctx context.Context, account string, page, limit int) ([]RemoteOrder, error)
	ListProductsPage(ctx context.Context, account string, page, limit int) ([]RemoteProduct, error)
	FindProductByCode(ctx context.Context, account string, code string) (*RemoteProduct, error)
}

type erpClient struct {
	httpClient *http.Client
	baseApiURL string
	tokens     *TokenManager
}

func NewErpClient(baseApiURL string, tokens *TokenManager) ErpGateway {
	return &erpClient{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseApiURL: baseApiURL,
		tokens:     tokens,
	}
}

type requestSpec struct {
	method string
	path   string
	query  url.Values
	body   interface{}
}

// do executes the spec with the account's bearer token. On a 401 it
// refreshes once and replays the identical request; a second 401
// surfaces as ErrRemoteAuth. Other error classes map to the typed
// errors in errors.go and are never retried here.
func (c *erpClient) do(ctx context.Context, account string, spec requestSpec, out interface{}) error {
	token, err := c.tokens.Access(ctx, account)
	if err != nil {
		return err
	}

	resp, err := c.execute(ctx, spec, token)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		drain(resp)
		token, err = c.tokens.Refresh(ctx, account)
		if err != nil {
			return err
		}
		resp, err = c.execute(ctx, spec, token)
		if err != nil {
			return err
		}
		if resp.StatusCode == http.StatusUnauthorized {
			drain(resp)
			return ErrRemoteAuth
		}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode erp response: %w", err)
		}
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s %s", ErrNotFound, spec.method, spec.path)
	case resp.StatusCode >= 500:
		b, _ := io.ReadAll(resp.Body)
		return &RemoteTransientError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%s %s: %s", spec.method, spec.path, string(b)),
		}
	default:
		return parseValidationError(resp)
	}
}

func (c *erpClient) execute(ctx context.Context, spec requestSpec, token string) (*http.Response, error) {
	var body io.Reader
	if spec.body != nil {
		b, err := json.Marshal(spec.body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		body = bytes.NewReader(b)
	}

	u := c.baseApiURL + spec.path
	if len(spec.query) > 0 {
		u += "?" + spec.query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, spec.method, u, body)
	if err != nil {
		return nil, fmt.Errorf("build erp request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &RemoteTransientError{Err: err}
	}
	return resp, nil
}

func parseValidationError(resp *http.Response) error {
	verr := &RemoteValidationError{
		StatusCode:  resp.StatusCode,
		Message:     fmt.Sprintf("request rejected with status %d", resp.StatusCode),
		FieldErrors: map[string]string{},
	}
	var body remoteErrorBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
		if body.Error.Message != "" {
			verr.Message = body.Error.Message
		}
		for _, f := range body.Error.Fields {
			verr.FieldErrors[f.Element] = f.Msg
		}
	}
	return verr
}

func drain(resp *http.Response) {
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}

func (c *erpClient) GetOrder(ctx context.Context, account string, orderID int64) (*RemoteOrder, json.RawMessage, error) {
	var env dataEnvelope[json.RawMessage]
	err := c.do(ctx, account, requestSpec{
		method: http.MethodGet,
		path:   "/pedidos/vendas/" + strconv.FormatInt(orderID, 10),
	}, &env)
	if err != nil {
		return nil, nil, err
	}

	var order RemoteOrder
	if err := json.Unmarshal(env.Data, &order); err != nil {
		return nil, nil, fmt.Errorf("decode order %d: %w", orderID, err)
	}
	return &order, env.Data, nil
}

func (c *erpClient) CreateOrder(ctx context.Context, account string, order *OrderUpsert) (*CreatedOrder, error) {
	var env dataEnvelope[CreatedOrder]
	err := c.do(ctx, account, requestSpec{
		method: http.MethodPost,
		path:   "/pedidos/vendas",
		body:   order,
	}, &env)
	if err != nil {
		return nil, err
	}
	return &env.Data, nil
}

func (c *erpClient) UpdateOrder(ctx context.Context, account string, orderID int64, order *OrderUpsert) error {
	return c.do(ctx, account, requestSpec{
		method: http.MethodPut,
		path:   "/pedidos/vendas/" + strconv.FormatInt(orderID, 10),
		body:   order,
	}, nil)
}

func (c *erpClient) DeleteOrder(ctx context.Context, account string, orderID int64) error {
	return c.do(ctx, account, requestSpec{
		method: http.MethodDelete,
		path:   "/pedidos/vendas/" + strconv.FormatInt(orderID, 10),
	}, nil)
}

func (c *erpClient) UpdateOrderStatus(ctx context.Context, account string, orderID int64, statusID int32) error {
	return c.do(ctx, account, requestSpec{
		method: http.MethodPatch,
		path: fmt.Sprintf("/pedidos/vendas/%d/situacoes/%d",
			orderID, statusID),
	}, nil)
}

func (c *erpClient) ListOrdersPage(ctx context.Context, account string, page, limit int) ([]RemoteOrder, error) {
	q := url.Values{}
	q.Set("pagina", strconv.Itoa(page))
	q.Set("limite", strconv.Itoa(limit))

	var env dataEnvelope[[]RemoteOrder]
	err := c.do(ctx, account, requestSpec{
		method: http.MethodGet,
		path:   "/pedidos/vendas",
		query:  q,
	}, &env)
	if err != nil {
		return nil, err
	}
	return env.Data, nil
}

func (c *erpClient) ListProductsPage(ctx context.Context, account string, page, limit int) ([]RemoteProduct, error) {
	q := url.Values{}
	q.Set("pagina", strconv.Itoa(page))
	q.Set("limite", strconv.Itoa(limit))

	var env dataEnvelope[[]RemoteProduct]
	err := c.do(ctx, account, requestSpec{
		method: http.MethodGet,
		path:   "/produtos",
		query:  q,
	}, &env)
	if err != nil {
		return nil, err
	}
	return env.Data, nil
}

func (c *erpClient) FindProductByCode(ctx context.Context, account string, code string) (*RemoteProduct, error) {
	q := url.Values{}
	q.Set("codigo", code)

	var env dataEnvelope[[]RemoteProduct]
	err := c.do(ctx, account, requestSpec{
		method: http.MethodGet,
		path:   "/produtos",
		query:  q,
	}, &env)
	if err != nil {
		return nil, err
	}
	if len(env.Data) == 0 {
		return nil, fmt.Errorf("%w: product %s", ErrNotFound, code)
	}
	return &env.Data[0], nil
}
