package sheets

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/angelmondragon/gearshed-backend/pkg/config"
	"github.com/angelmondragon/gearshed-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/gearshed-backend/pkg/errors"
	"github.com/angelmondragon/gearshed-backend/pkg/logger"
)

const (
	valueInputOption  = "USER_ENTERED"
	insertDataOption  = "INSERT_ROWS"
	valueRenderOption = "FORMATTED_VALUE"
	defaultTimeout    = 20 * time.Second
)

// Client is the Google Sheets implementation of Gateway.
type Client struct {
	values          *sheetsapi.SpreadsheetsValuesService
	spreadsheetID   string
	inventoryTab    string
	transactionsTab string
	metadataTab     string
	timeout         time.Duration
	logg            *logger.Logger
}

var _ Gateway = (*Client)(nil)

// New authenticates with the service-account credentials in cfg.
func New(ctx context.Context, cfg config.SheetsConfig, logg *logger.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var opt option.ClientOption
	if strings.TrimSpace(cfg.CredentialsJSON) != "" {
		jwtCfg, err := google.JWTConfigFromJSON([]byte(cfg.CredentialsJSON), sheetsapi.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("parse sheets credentials json: %w", err)
		}
		opt = option.WithTokenSource(jwtCfg.TokenSource(ctx))
	} else {
		jwtCfg := &jwt.Config{
			Email:      cfg.ClientEmail,
			PrivateKey: []byte(cfg.Key()),
			Scopes:     []string{sheetsapi.SpreadsheetsScope},
			TokenURL:   google.JWTTokenURL,
		}
		opt = option.WithTokenSource(jwtCfg.TokenSource(ctx))
	}
	return NewWithOptions(ctx, cfg, logg, opt)
}

// NewWithOptions builds a client with explicit API options. Tests point it at
// an httptest server.
func NewWithOptions(ctx context.Context, cfg config.SheetsConfig, logg *logger.Logger, opts ...option.ClientOption) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, fmt.Errorf("spreadsheet id required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	svc, err := sheetsapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		values:          svc.Spreadsheets.Values,
		spreadsheetID:   cfg.SpreadsheetID,
		inventoryTab:    orDefault(cfg.InventoryTab, "Master Inventory"),
		transactionsTab: orDefault(cfg.TransactionsTab, "Transactions"),
		metadataTab:     orDefault(cfg.MetadataTab, "Metadata"),
		timeout:         timeout,
		logg:            logg,
	}, nil
}

func (c *Client) ListInventoryRows(ctx context.Context) (*InventoryRead, error) {
	values, err := c.readRange(ctx, quoteTab(c.inventoryTab))
	if err != nil {
		return nil, GatewayError("read inventory", err)
	}
	read, err := decodeInventory(values)
	if err != nil {
		return nil, GatewayError("read inventory", err)
	}
	return read, nil
}

func (c *Client) AddInventoryRow(ctx context.Context, item models.Item) error {
	headers, err := c.headers(ctx, c.inventoryTab)
	if err != nil {
		return GatewayError("add item", err)
	}
	if len(headers) == 0 {
		return GatewayError("add item", fmt.Errorf("inventory tab %q has no header row", c.inventoryTab))
	}
	row := encodeRow(headers, ItemValues(item))
	if err := c.appendRows(ctx, c.inventoryTab, [][]string{row}); err != nil {
		return GatewayError("add item", err)
	}
	return nil
}

func (c *Client) UpdateInventoryRow(ctx context.Context, patch ItemPatch) error {
	return c.UpdateInventoryRows(ctx, patch)
}

// UpdateInventoryRows writes every patch in one batch. Patches for ids the
// sheet does not hold come back as NOT_FOUND errors; the rest still apply.
func (c *Client) UpdateInventoryRows(ctx context.Context, patches ...ItemPatch) error {
	if len(patches) == 0 {
		return nil
	}
	values, err := c.readRange(ctx, quoteTab(c.inventoryTab))
	if err != nil {
		return GatewayError("update items", err)
	}
	if len(values) == 0 {
		return GatewayError("update items", fmt.Errorf("inventory tab %q is empty", c.inventoryTab))
	}
	idx := newHeaderIndex(values[0])

	var (
		data    []*sheetsapi.ValueRange
		missing error
	)
	for _, patch := range patches {
		sheetRow := findRow(values, idx, HeaderItemID, patch.ItemID)
		if sheetRow == 0 {
			missing = multierr.Append(missing, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("item %s not found in inventory sheet", patch.ItemID)))
			continue
		}
		for header, value := range patch.Values {
			col, ok := idx.col(header)
			if !ok {
				continue
			}
			data = append(data, &sheetsapi.ValueRange{
				Range:  cellRange(c.inventoryTab, col, sheetRow),
				Values: [][]any{{value}},
			})
		}
	}
	if len(data) > 0 {
		if err := c.batchUpdate(ctx, data); err != nil {
			return GatewayError("update items", err)
		}
	}
	return missing
}

func (c *Client) AppendTransactionRows(ctx context.Context, txs ...models.Transaction) error {
	if len(txs) == 0 {
		return nil
	}
	headers, err := c.headers(ctx, c.transactionsTab)
	if err != nil {
		return GatewayError("append transactions", err)
	}
	rows := make([][]string, 0, len(txs)+1)
	if len(headers) == 0 {
		c.logg.Info(ctx, "transactions tab has no header row; writing one")
		headers = TransactionHeaders
		rows = append(rows, TransactionHeaders)
	}
	for _, tx := range txs {
		rows = append(rows, encodeRow(headers, transactionValues(tx)))
	}
	if err := c.appendRows(ctx, c.transactionsTab, rows); err != nil {
		return GatewayError("append transactions", err)
	}
	return nil
}

func (c *Client) ListCategories(ctx context.Context) ([]models.Category, error) {
	values, err := c.readRange(ctx, quoteTab(c.metadataTab))
	if err != nil {
		return nil, GatewayError("read categories", err)
	}
	categories, err := decodeCategories(values)
	if err != nil {
		return nil, GatewayError("read categories", err)
	}
	return categories, nil
}

func (c *Client) AddCategory(ctx context.Context, category models.Category) error {
	headers, err := c.headers(ctx, c.metadataTab)
	if err != nil {
		return GatewayError("add category", err)
	}
	rows := [][]string{}
	if len(headers) == 0 {
		headers = MetadataHeaders
		rows = append(rows, MetadataHeaders)
	}
	rows = append(rows, encodeRow(headers, categoryValues(category)))
	if err := c.appendRows(ctx, c.metadataTab, rows); err != nil {
		return GatewayError("add category", err)
	}
	return nil
}

func (c *Client) UpdateCategory(ctx context.Context, class string, category models.Category) error {
	values, err := c.readRange(ctx, quoteTab(c.metadataTab))
	if err != nil {
		return GatewayError("update category", err)
	}
	if len(values) == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
	}
	idx := newHeaderIndex(values[0])
	sheetRow := findRow(values, idx, HeaderClass, class)
	if sheetRow == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
	}
	var data []*sheetsapi.ValueRange
	for header, value := range categoryValues(category) {
		col, ok := idx.col(header)
		if !ok {
			continue
		}
		data = append(data, &sheetsapi.ValueRange{
			Range:  cellRange(c.metadataTab, col, sheetRow),
			Values: [][]any{{value}},
		})
	}
	if err := c.batchUpdate(ctx, data); err != nil {
		return GatewayError("update category", err)
	}
	return nil
}

func (c *Client) headers(ctx context.Context, tab string) ([]string, error) {
	values, err := c.readRange(ctx, quoteTab(tab)+"!1:1")
	if err != nil {
		return nil, err
	}
	if len(values) == 0 || isBlankRow(values[0]) {
		return nil, nil
	}
	return values[0], nil
}

func (c *Client) readRange(ctx context.Context, rng string) ([][]string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.values.Get(c.spreadsheetID, rng).
		ValueRenderOption(valueRenderOption).
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}
	out := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		cells := make([]string, len(row))
		for j, cell := range row {
			if cell != nil {
				cells[j] = fmt.Sprint(cell)
			}
		}
		out[i] = cells
	}
	return out, nil
}

func (c *Client) appendRows(ctx context.Context, tab string, rows [][]string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	_, err := c.values.Append(c.spreadsheetID, quoteTab(tab)+"!A1", &sheetsapi.ValueRange{Values: toCells(rows)}).
		ValueInputOption(valueInputOption).
		InsertDataOption(insertDataOption).
		Context(ctx).
		Do()
	return err
}

func (c *Client) batchUpdate(ctx context.Context, data []*sheetsapi.ValueRange) error {
	if len(data) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	_, err := c.values.BatchUpdate(c.spreadsheetID, &sheetsapi.BatchUpdateValuesRequest{
		ValueInputOption: valueInputOption,
		Data:             data,
	}).Context(ctx).Do()
	return err
}

func toCells(rows [][]string) [][]any {
	out := make([][]any, len(rows))
	for i, row := range rows {
		cells := make([]any, len(row))
		for j, v := range row {
			cells[j] = v
		}
		out[i] = cells
	}
	return out
}

func orDefault(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
