package customerorders

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SnapshotMetadataKey is the payment metadata key carrying the order snapshot.
const SnapshotMetadataKey = "order_snapshot"

// OrderSnapshot is the checkout-time copy of an order stored on its payment,
// in major units.
type OrderSnapshot struct {
	Items []SnapshotItem  `json:"items"`
	Total decimal.Decimal `json:"total"`
}

// SnapshotItem is one line of an OrderSnapshot.
type SnapshotItem struct {
	ProductID uuid.UUID       `json:"productId"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// Encode renders the snapshot as the JSON string stored in metadata.
func (s OrderSnapshot) Encode() (string, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// ParseSnapshot decodes a metadata snapshot. Malformed input yields ok=false
// instead of an error; lines with bad quantities or prices are dropped.
func ParseSnapshot(raw string) (OrderSnapshot, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return OrderSnapshot{}, false
	}
	var loose struct {
		Items []struct {
			ProductID string          `json:"productId"`
			Quantity  json.Number     `json:"quantity"`
			Price     json.RawMessage `json:"price"`
		} `json:"items"`
		Total json.RawMessage `json:"total"`
	}
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&loose); err != nil {
		return OrderSnapshot{}, false
	}

	out := OrderSnapshot{Total: parseAmount(loose.Total)}
	for _, item := range loose.Items {
		qty, err := item.Quantity.Int64()
		if err != nil || qty <= 0 {
			continue
		}
		price := parseAmount(item.Price)
		if price.IsNegative() {
			continue
		}
		productID, _ := uuid.Parse(item.ProductID)
		out.Items = append(out.Items, SnapshotItem{ProductID: productID, Quantity: int(qty), Price: price})
	}
	return out, true
}

func parseAmount(raw json.RawMessage) decimal.Decimal {
	text := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if text == "" || text == "null" {
		return decimal.Zero
	}
	v, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero
	}
	return v
}
