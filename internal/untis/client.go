package untis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"untisync/internal/config"
	appLog "untisync/internal/log"
)

const (
	clientName       = "untisync"
	defaultChunkDays = 28
	dateLayout       = "20060102"
)

// RPCError is an application-level error returned by the WebUntis JSON-RPC
// endpoint.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("untis: rpc error %d: %s", e.Code, e.Message)
}

type rpcRequest struct {
	ID      string `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
	JSONRPC string `json:"jsonrpc"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error,omitempty"`
}

// Client talks to a WebUntis school over its JSON-RPC endpoint. A Client
// holds the session cookie obtained by Login; it is not safe for concurrent
// use while logged in.
type Client struct {
	cfg     *config.Config
	baseURL string
	client  *http.Client

	sessionID string
}

// NewClient creates a WebUntis client from the given configuration.
//
// cfg.Server is normally a bare host ("mese.webuntis.com"); a full URL
// (including scheme) is also accepted, which lets tests point the client at
// a local server.
func NewClient(cfg *config.Config) *Client {
	base := cfg.Server
	if !strings.Contains(base, "://") {
		base = "https://" + base
	}
	base = strings.TrimSuffix(base, "/") + "/WebUntis/jsonrpc.do?school=" + url.QueryEscape(cfg.School)

	return &Client{
		cfg:     cfg,
		baseURL: base,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type authResult struct {
	SessionID  string `json:"sessionId"`
	PersonType int    `json:"personType"`
	PersonID   int64  `json:"personId"`
	KlasseID   int64  `json:"klasseId"`
}

// Login authenticates against WebUntis and stores the session id for
// subsequent calls.
func (c *Client) Login(ctx context.Context) error {
	params := map[string]string{
		"user":     c.cfg.Username,
		"password": c.cfg.Password,
		"client":   clientName,
	}

	var res authResult
	if err := c.call(ctx, "authenticate", params, &res); err != nil {
		return fmt.Errorf("untis: login failed: %w", err)
	}
	if res.SessionID == "" {
		return errors.New("untis: login returned no session id")
	}

	c.sessionID = res.SessionID
	appLog.Info("untis login ok", "server", c.host())
	return nil
}

// Logout terminates the server-side session. Errors are returned but are
// safe to ignore at the end of a run.
func (c *Client) Logout(ctx context.Context) error {
	if c.sessionID == "" {
		return nil
	}
	err := c.call(ctx, "logout", nil, nil)
	c.sessionID = ""
	return err
}

type schoolElement struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ResolveElement determines the timetable element to fetch.
//
//  1. If classID is non-blank, it is used directly as a class element.
//  2. Otherwise the first class returned by getKlassen is used.
//  3. Otherwise the first student returned by getStudents is used.
func (c *Client) ResolveElement(ctx context.Context, classID string) (Element, error) {
	if id := strings.TrimSpace(classID); id != "" {
		n, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return Element{}, fmt.Errorf("untis: invalid class id %q: %w", classID, err)
		}
		return Element{ID: n, Type: ElementTypeClass}, nil
	}

	var classes []schoolElement
	if err := c.call(ctx, "getKlassen", nil, &classes); err != nil {
		appLog.Debug("getKlassen failed", "err", err)
	} else if len(classes) > 0 {
		appLog.Info("auto-detected class", "name", classes[0].Name, "id", classes[0].ID)
		return Element{ID: classes[0].ID, Type: ElementTypeClass}, nil
	}

	var students []schoolElement
	if err := c.call(ctx, "getStudents", nil, &students); err != nil {
		appLog.Debug("getStudents failed", "err", err)
	} else if len(students) > 0 {
		appLog.Info("auto-detected student", "name", students[0].Name, "id", students[0].ID)
		return Element{ID: students[0].ID, Type: ElementTypeStudent}, nil
	}

	return Element{}, errors.New("untis: could not find any class or student element")
}

type timetableParams struct {
	Options timetableOptions `json:"options"`
}

type timetableElement struct {
	ID   int64 `json:"id"`
	Type int   `json:"type"`
}

type timetableOptions struct {
	Element          timetableElement `json:"element"`
	StartDate        string           `json:"startDate"`
	EndDate          string           `json:"endDate"`
	ShowBooking      bool             `json:"showBooking"`
	ShowInfo         bool             `json:"showInfo"`
	ShowSubstText    bool             `json:"showSubstText"`
	ShowLsText       bool             `json:"showLsText"`
	ShowStudentgroup bool             `json:"showStudentgroup"`
	KlasseFields     []string         `json:"klasseFields"`
	RoomFields       []string         `json:"roomFields"`
	SubjectFields    []string         `json:"subjectFields"`
	TeacherFields    []string         `json:"teacherFields"`
}

// Timetable fetches the timetable for el between start and end (dates,
// inclusive) in chunks of cfg.ChunkDays. A failing chunk is logged and
// skipped so that one bad window never loses the whole range; only context
// cancellation aborts the loop.
func (c *Client) Timetable(ctx context.Context, el Element, start, end time.Time) ([]Lesson, error) {
	chunkDays := c.cfg.ChunkDays
	if chunkDays <= 0 {
		chunkDays = defaultChunkDays
	}

	var out []Lesson
	fields := []string{"id", "name", "longname"}

	for cur := start; cur.Before(end); {
		chunkEnd := cur.AddDate(0, 0, chunkDays)
		if chunkEnd.After(end) {
			chunkEnd = end
		}

		params := timetableParams{Options: timetableOptions{
			Element:          timetableElement{ID: el.ID, Type: el.Type},
			StartDate:        cur.Format(dateLayout),
			EndDate:          chunkEnd.Format(dateLayout),
			ShowBooking:      true,
			ShowInfo:         true,
			ShowSubstText:    true,
			ShowLsText:       true,
			ShowStudentgroup: true,
			KlasseFields:     fields,
			RoomFields:       fields,
			SubjectFields:    fields,
			TeacherFields:    fields,
		}}

		var items []Lesson
		if err := c.call(ctx, "getTimetable", params, &items); err != nil {
			if ctx.Err() != nil {
				return out, ctx.Err()
			}
			appLog.Error("timetable chunk fetch failed", err,
				"server", c.host(), "start", params.Options.StartDate, "end", params.Options.EndDate)
		} else {
			out = append(out, items...)
			appLog.Debug("timetable chunk fetched",
				"start", params.Options.StartDate, "end", params.Options.EndDate, "items", len(items))
		}

		cur = chunkEnd.AddDate(0, 0, 1)
	}

	return out, nil
}

// call performs one JSON-RPC round trip. out may be nil when the result is
// irrelevant.
func (c *Client) call(ctx context.Context, method string, params any, out any) error {
	if params == nil {
		params = struct{}{}
	}

	body, err := json.Marshal(rpcRequest{
		ID:      clientName,
		Method:  method,
		Params:  params,
		JSONRPC: "2.0",
	})
	if err != nil {
		return fmt.Errorf("untis: marshal %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.sessionID != "" {
		req.Header.Set("Cookie", "JSESSIONID="+c.sessionID)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("untis: %s request failed: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("untis: %s returned %s", method, resp.Status)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("untis: read %s response: %w", method, err)
	}

	var rpc rpcResponse
	if err := json.Unmarshal(raw, &rpc); err != nil {
		return fmt.Errorf("untis: decode %s response: %w", method, err)
	}
	if rpc.Error != nil {
		return rpc.Error
	}

	if out != nil && len(rpc.Result) > 0 {
		if err := json.Unmarshal(rpc.Result, out); err != nil {
			return fmt.Errorf("untis: decode %s result: %w", method, err)
		}
	}
	return nil
}

// host returns the credential-free server host for logging.
func (c *Client) host() string {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "(unknown)"
	}
	return u.Host
}
