package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"mandir/internal/core"
	ports "mandir/internal/sheets"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const valueInput = "USER_ENTERED"

type Client struct {
	svc              *gsheet.Service
	spreadsheetID    string
	bookingsSheet    string
	rosterSheet      string
	collectionsSheet string
}

var _ ports.Exporter = (*Client)(nil)

// Config selects the spreadsheet and the tab names written to.
type Config struct {
	SpreadsheetID    string
	CredentialsJSON  string
	CredentialsFile  string
	BookingsSheet    string
	RosterSheet      string
	CollectionsSheet string
}

func (c Config) withDefaults() Config {
	if c.BookingsSheet == "" {
		c.BookingsSheet = "Bookings"
	}
	if c.RosterSheet == "" {
		c.RosterSheet = "Roster"
	}
	if c.CollectionsSheet == "" {
		c.CollectionsSheet = "Collections"
	}
	return c
}

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, cfg Config) (*Client, error) {
	cfg = cfg.withDefaults()
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	creds, err := loadCredentials(ctx, cfg)
	if err != nil {
		return nil, err
	}

	svc, err := newSheetsService(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:              svc,
		spreadsheetID:    cfg.SpreadsheetID,
		bookingsSheet:    cfg.BookingsSheet,
		rosterSheet:      cfg.RosterSheet,
		collectionsSheet: cfg.CollectionsSheet,
	}, nil
}

// NewFromEnv reads Config from GOOGLE_SPREADSHEET_ID, GOOGLE_CREDENTIALS_JSON,
// GOOGLE_CREDENTIALS_FILE (or GOOGLE_APPLICATION_CREDENTIALS) and the
// *_SHEET_NAME variables.
func NewFromEnv(ctx context.Context) (*Client, error) {
	file := strings.TrimSpace(os.Getenv("GOOGLE_CREDENTIALS_FILE"))
	if file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	return New(ctx, Config{
		SpreadsheetID:    strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID")),
		CredentialsJSON:  strings.TrimSpace(os.Getenv("GOOGLE_CREDENTIALS_JSON")),
		CredentialsFile:  file,
		BookingsSheet:    strings.TrimSpace(os.Getenv("BOOKINGS_SHEET_NAME")),
		RosterSheet:      strings.TrimSpace(os.Getenv("ROSTER_SHEET_NAME")),
		CollectionsSheet: strings.TrimSpace(os.Getenv("COLLECTIONS_SHEET_NAME")),
	})
}

func loadCredentials(ctx context.Context, cfg Config) ([]byte, error) {
	switch {
	case cfg.CredentialsJSON != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		return []byte(cfg.CredentialsJSON), nil
	case cfg.CredentialsFile != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", cfg.CredentialsFile)
		data, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return data, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_CREDENTIALS_JSON or GOOGLE_CREDENTIALS_FILE)")
	}
}

// newSheetsService builds the service over a pooled HTTP client carrying the
// service account token source.
func newSheetsService(ctx context.Context, credentialsJSON []byte) (*gsheet.Service, error) {
	creds, err := googleoauth.CredentialsFromJSON(ctx, credentialsJSON, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse service account credentials: %w", err)
	}

	httpClient := newHTTPClientWithPooling()
	httpClient.Transport = &oauth2.Transport{
		Source: oauth2.ReuseTokenSource(nil, creds.TokenSource),
		Base:   httpClient.Transport,
	}

	service, err := gsheet.NewService(ctx, goption.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets service created", "project_id", creds.ProjectID)
	return service, nil
}

func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		MaxConnsPerHost:       50,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   60 * time.Second,
	}
}

// AppendBooking appends one row to the bookings register.
func (c *Client) AppendBooking(ctx context.Context, b core.Booking) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	if b.ID == 0 {
		return "", errors.New("booking has no id")
	}

	rng := fmt.Sprintf("%s!A:%s", c.bookingsSheet, lastColumn(len(bookingHeader)))
	vr := &gsheet.ValueRange{Values: [][]interface{}{bookingRow(b)}}
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption(valueInput).
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to %s: %w", c.bookingsSheet, err)
	}
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		return resp.Updates.UpdatedRange, nil
	}
	return rng, nil
}

// WriteRoster replaces the roster tab with the pujas of day.
func (c *Client) WriteRoster(ctx context.Context, day core.Date, entries []core.RosterEntry) (string, error) {
	return c.replaceSheet(ctx, c.rosterSheet, rosterRows(day, entries))
}

// WriteCollection replaces the collections tab with s.
func (c *Client) WriteCollection(ctx context.Context, s core.CollectionSummary) (string, error) {
	return c.replaceSheet(ctx, c.collectionsSheet, collectionRows(s))
}

func (c *Client) replaceSheet(ctx context.Context, sheet string, rows [][]interface{}) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, sheet, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("clear %s: %w", sheet, err)
	}

	rng := sheet + "!A1"
	resp, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, &gsheet.ValueRange{Values: rows}).
		ValueInputOption(valueInput).
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("update %s: %w", sheet, err)
	}

	slog.InfoContext(ctx, "Sheet rewritten", "sheet", sheet, "rows", len(rows))
	if resp.UpdatedRange != "" {
		return resp.UpdatedRange, nil
	}
	return rng, nil
}
