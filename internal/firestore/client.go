package firestore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"prayer-times-ics/internal/model"
)

const batchSize = 250 // Stay well under Firestore's 500 operation limit

// Client wraps the Firestore client for the prayer-day archive.
type Client struct {
	client     *firestore.Client
	collection string
}

// New creates a new Firestore client.
func New(ctx context.Context, projectID, collection string) (*Client, error) {
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}
	return &Client{
		client:     client,
		collection: collection,
	}, nil
}

// Close closes the Firestore client.
func (c *Client) Close() error {
	return c.client.Close()
}

// ReplaceMonth replaces all archived days of a city for a month ("2006-01").
// It deletes the existing documents, then writes the new ones.
func (c *Client) ReplaceMonth(ctx context.Context, emirate, city, month string, days []model.PrayerDay, batchID string) error {
	query := c.client.Collection(c.collection).
		Where("emirate", "==", emirate).
		Where("city", "==", city).
		Where("month", "==", month)

	if err := c.deleteMatching(ctx, query); err != nil {
		return fmt.Errorf("deleting existing days: %w", err)
	}
	return c.UpsertDays(ctx, days, batchID)
}

// UpsertDays writes days, overwriting any document with the same identity.
func (c *Client) UpsertDays(ctx context.Context, days []model.PrayerDay, batchID string) error {
	coll := c.client.Collection(c.collection)

	for i := 0; i < len(days); i += batchSize {
		end := min(i+batchSize, len(days))
		batch := c.client.Batch()

		for _, day := range days[i:end] {
			batch.Set(coll.Doc(generateDocID(day)), dayToMap(day, batchID))
		}

		if _, err := batch.Commit(ctx); err != nil {
			return fmt.Errorf("committing batch: %w", err)
		}
	}

	return nil
}

// deleteMatching deletes every document returned by query.
func (c *Client) deleteMatching(ctx context.Context, query firestore.Query) error {
	for {
		iter := query.Limit(batchSize).Documents(ctx)
		batch := c.client.Batch()
		numDeleted := 0

		for {
			doc, err := iter.Next()
			if err == iterator.Done {
				break
			}
			if err != nil {
				return fmt.Errorf("iterating documents: %w", err)
			}
			batch.Delete(doc.Ref)
			numDeleted++
		}

		if numDeleted == 0 {
			return nil
		}

		if _, err := batch.Commit(ctx); err != nil {
			return fmt.Errorf("committing delete batch: %w", err)
		}

		if numDeleted < batchSize {
			return nil
		}
	}
}

// Days returns the archived days of a city between from and to inclusive,
// ordered by date.
func (c *Client) Days(ctx context.Context, emirate, city, from, to string) ([]model.PrayerDay, error) {
	var days []model.PrayerDay

	iter := c.client.Collection(c.collection).
		Where("emirate", "==", emirate).
		Where("city", "==", city).
		Where("date", ">=", from).
		Where("date", "<=", to).
		Documents(ctx)
	defer iter.Stop()

	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterating documents: %w", err)
		}

		day, err := mapToDay(doc.Data())
		if err != nil {
			return nil, fmt.Errorf("parsing document %s: %w", doc.Ref.ID, err)
		}
		days = append(days, day)
	}

	sort.Slice(days, func(i, j int) bool { return days[i].Date < days[j].Date })
	return days, nil
}

// generateDocID creates a unique document ID from the day's identity.
func generateDocID(day model.PrayerDay) string {
	data := fmt.Sprintf("%s|%s|%s", day.Emirate, day.City, day.Date)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:16]) // Use first 16 bytes for shorter ID
}

// dayToMap converts a PrayerDay to a Firestore document map.
func dayToMap(day model.PrayerDay, batchID string) map[string]interface{} {
	timings := make(map[string]interface{}, len(day.Timings))
	for p, t := range day.Timings {
		entry := map[string]interface{}{"adhan": t.Adhan}
		if t.Iqamah != "" {
			entry["iqamah"] = t.Iqamah
		}
		timings[string(p)] = entry
	}

	month := day.Date
	if len(month) >= 7 {
		month = month[:7]
	}

	m := map[string]interface{}{
		"emirate":  day.Emirate,
		"city":     day.City,
		"date":     day.Date,
		"month":    month,
		"timings":  timings,
		"batch_id": batchID,
	}
	if day.Sunrise != "" {
		m["sunrise"] = day.Sunrise
	}
	return m
}

// mapToDay converts a Firestore document map to a PrayerDay.
func mapToDay(m map[string]interface{}) (model.PrayerDay, error) {
	day := model.PrayerDay{Timings: make(map[model.Prayer]model.Timing)}

	if v, ok := m["emirate"].(string); ok {
		day.Emirate = v
	}
	if v, ok := m["city"].(string); ok {
		day.City = v
	}
	if v, ok := m["date"].(string); ok {
		day.Date = v
	}
	if v, ok := m["sunrise"].(string); ok {
		day.Sunrise = v
	}
	if day.Date == "" {
		return model.PrayerDay{}, fmt.Errorf("missing date")
	}

	timings, _ := m["timings"].(map[string]interface{})
	for _, p := range model.Prayers {
		entry, ok := timings[string(p)].(map[string]interface{})
		if !ok {
			return model.PrayerDay{}, fmt.Errorf("missing %s timing", p)
		}
		var t model.Timing
		if v, ok := entry["adhan"].(string); ok {
			t.Adhan = v
		}
		if v, ok := entry["iqamah"].(string); ok {
			t.Iqamah = v
		}
		if t.Adhan == "" {
			return model.PrayerDay{}, fmt.Errorf("missing %s adhan", p)
		}
		day.Timings[p] = t
	}

	return day, nil
}
