// Package roomapi is the HTTP client of the chat server's REST API: account
// handling, the user directory and room management.
package roomapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/AmanSingh544/ChatAppResponsive/internal/models"
)

// ErrUnauthenticated is returned by calls that need a token before Login.
var ErrUnauthenticated = errors.New("roomapi: no token, log in first")

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("roomapi: status %d", e.Status)
	}
	return fmt.Sprintf("roomapi: status %d: %s", e.Status, e.Message)
}

type Client struct {
	BaseURL string
	// Token is sent as a bearer token. Login and Register set it.
	Token string
	// Timeout bounds calls whose context carries no deadline.
	Timeout time.Duration
	HTTP    *fasthttp.Client
}

func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
		HTTP:    &fasthttp.Client{Name: "chatctl"},
	}
}

func (c *Client) Register(ctx context.Context, name, password string) (models.AuthResponse, error) {
	var res models.AuthResponse
	err := c.do(ctx, fasthttp.MethodPost, "api/auth/signup", false, models.RegisterRequest{Name: name, Password: password}, &res)
	if err == nil {
		c.Token = res.Token
	}
	return res, err
}

func (c *Client) Login(ctx context.Context, name, password string) (models.AuthResponse, error) {
	var res models.AuthResponse
	err := c.do(ctx, fasthttp.MethodPost, "api/auth/login", false, models.LoginRequest{Name: name, Password: password}, &res)
	if err == nil {
		c.Token = res.Token
	}
	return res, err
}

func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, fasthttp.MethodPost, "api/auth/logout", false, nil, nil)
	c.Token = ""
	return err
}

func (c *Client) GetAllUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	return users, c.do(ctx, fasthttp.MethodGet, "api/user/alluser", true, nil, &users)
}

func (c *Client) GetUser(ctx context.Context, id string) (models.User, error) {
	var u models.User
	return u, c.do(ctx, fasthttp.MethodGet, "api/user/profile/"+id, true, nil, &u)
}

func (c *Client) CreateRoom(ctx context.Context, data models.RoomCreationData) (models.Room, error) {
	var r models.Room
	return r, c.do(ctx, fasthttp.MethodPost, "api/user/room/create", true, data, &r)
}

func (c *Client) GetRooms(ctx context.Context) ([]models.Room, error) {
	var rooms []models.Room
	return rooms, c.do(ctx, fasthttp.MethodGet, "api/user/room/list", true, nil, &rooms)
}

func (c *Client) GetRoomByID(ctx context.Context, id string) (models.Room, error) {
	var r models.Room
	return r, c.do(ctx, fasthttp.MethodGet, "api/user/room/"+id, true, nil, &r)
}

func (c *Client) JoinRoom(ctx context.Context, id string) (models.Room, error) {
	var r models.Room
	return r, c.do(ctx, fasthttp.MethodPost, "api/user/room/join/"+id, true, nil, &r)
}

func (c *Client) AddMembers(ctx context.Context, members models.RoomMembers) (models.Room, error) {
	var r models.Room
	body := models.AddMembersRequest{MembersData: members}
	return r, c.do(ctx, fasthttp.MethodPut, "api/user/room/add_member", true, body, &r)
}

func (c *Client) GetAvailableRooms(ctx context.Context) ([]models.Room, error) {
	var rooms []models.Room
	return rooms, c.do(ctx, fasthttp.MethodGet, "api/user/room/available_room", true, nil, &rooms)
}

// do sends one request and decodes the envelope's data into out.
func (c *Client) do(ctx context.Context, method, path string, auth bool, in, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if auth && c.Token == "" {
		return ErrUnauthenticated
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(strings.TrimRight(c.BaseURL, "/") + "/" + path)
	req.Header.SetMethod(method)
	req.Header.Set(fasthttp.HeaderAccept, "application/json")
	if auth {
		req.Header.Set(fasthttp.HeaderAuthorization, "Bearer "+c.Token)
	}
	if in != nil {
		body, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("roomapi: encode %s: %w", path, err)
		}
		req.Header.SetContentType("application/json")
		req.SetBody(body)
	}

	if err := c.send(ctx, req, resp); err != nil {
		return fmt.Errorf("roomapi: %s %s: %w", method, path, err)
	}

	var env models.APIResponse[json.RawMessage]
	decodeErr := json.Unmarshal(resp.Body(), &env)
	if status := resp.StatusCode(); status < 200 || status > 299 {
		msg := env.Message
		if decodeErr != nil {
			msg = strings.TrimSpace(string(resp.Body()))
		}
		return &APIError{Status: status, Message: msg}
	}
	if decodeErr != nil {
		return fmt.Errorf("roomapi: decode %s: %w", path, decodeErr)
	}
	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("roomapi: decode %s data: %w", path, err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, req *fasthttp.Request, resp *fasthttp.Response) error {
	hc := c.HTTP
	if hc == nil {
		hc = &fasthttp.Client{}
	}
	if dl, ok := ctx.Deadline(); ok {
		return hc.DoDeadline(req, resp, dl)
	}
	if c.Timeout > 0 {
		return hc.DoTimeout(req, resp, c.Timeout)
	}
	return hc.Do(req, resp)
}
