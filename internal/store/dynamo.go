package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/bbernstein/surftrack/backend-go/internal/config"
	"github.com/bbernstein/surftrack/backend-go/internal/models"
	"github.com/rs/zerolog/log"
)

const (
	dynamoTimeLayout = "2006-01-02T15:04:05"
	dynamoDayLayout  = "2006-01-02"
	// DynamoDB's cap on items per TransactWriteItems call
	maxTransactItems = 100

	defaultWriteRetries = 3

	forecastAttrPrefix = "h"
	tideAttrPrefix     = "t"
)

type forecastItem struct {
	SpotID        uint     `dynamodbav:"spotId"`
	Timestamp     string   `dynamodbav:"ts"`
	WaveHeight    *float64 `dynamodbav:"waveHeight,omitempty"`
	WaveDirection *string  `dynamodbav:"waveDirection,omitempty"`
	Period        *float64 `dynamodbav:"period,omitempty"`
	Energy        *float64 `dynamodbav:"energy,omitempty"`
	WindSpeed     *float64 `dynamodbav:"windSpeed,omitempty"`
	WindDirection *string  `dynamodbav:"windDirection,omitempty"`
	Rating        *int     `dynamodbav:"rating,omitempty"`
	UpdatedAt     string   `dynamodbav:"updatedAt"`
}

type tideItem struct {
	SpotID    uint    `dynamodbav:"spotId"`
	Timestamp string  `dynamodbav:"ts"`
	Height    float64 `dynamodbav:"height"`
	Type      string  `dynamodbav:"tideType"`
}

// DynamoStore keeps forecasts and tides in two DynamoDB tables keyed by
// (spotId, day). Each day item holds one attribute per hourly forecast
// ("h150405") or per tide event ("t150405#HIGH"), so a SET on that attribute
// is the upsert and a whole page is a handful of day items written in one
// transaction.
type DynamoStore struct {
	client  DynamoDBClient
	config  *config.StoreConfig
	now     func() time.Time
	backoff time.Duration
}

func NewDynamoStore(client DynamoDBClient, storeConfig *config.StoreConfig) *DynamoStore {
	if storeConfig == nil {
		storeConfig = config.GetStoreConfig()
	}
	cfg := *storeConfig
	if cfg.MaxWriteRetries <= 0 {
		cfg.MaxWriteRetries = defaultWriteRetries
	}
	return &DynamoStore{
		client: client,
		config: &cfg,
		now: func() time.Time {
			return time.Now().UTC()
		},
		backoff: 100 * time.Millisecond,
	}
}

// dayAttrs collects the attributes set on one day item, in insertion order
type dayAttrs struct {
	day    string
	names  []string
	values []types.AttributeValue
}

type dayGroups struct {
	days  []*dayAttrs
	index map[string]*dayAttrs
}

func (g *dayGroups) add(day, name string, value types.AttributeValue) {
	if g.index == nil {
		g.index = map[string]*dayAttrs{}
	}
	d, ok := g.index[day]
	if !ok {
		d = &dayAttrs{day: day}
		g.index[day] = d
		g.days = append(g.days, d)
	}
	d.names = append(d.names, name)
	d.values = append(d.values, value)
}

// SaveSpotData writes one spot's rows in a single transaction of per-day
// updates. Existing hours and tide events not on the page are left alone.
func (s *DynamoStore) SaveSpotData(ctx context.Context, spotID uint, forecasts []models.ForecastRecord, tides []models.TideEvent) error {
	forecasts, tides = stamp(spotID, s.now(), forecasts, tides)
	if err := validate(forecasts, tides); err != nil {
		return fmt.Errorf("invalid row for spot %d: %w", spotID, err)
	}

	var forecastDays, tideDays dayGroups
	for _, f := range forecasts {
		av, err := attributevalue.Marshal(toForecastItem(f))
		if err != nil {
			return fmt.Errorf("marshaling forecast: %w", err)
		}
		forecastDays.add(dayKey(f.Timestamp), forecastAttr(f.Timestamp), av)
	}
	for _, t := range tides {
		av, err := attributevalue.Marshal(toTideItem(t))
		if err != nil {
			return fmt.Errorf("marshaling tide: %w", err)
		}
		tideDays.add(dayKey(t.Timestamp), tideAttr(t.Timestamp, t.Type), av)
	}

	total := len(forecastDays.days) + len(tideDays.days)
	if total == 0 {
		return nil
	}
	if total > maxTransactItems {
		return fmt.Errorf("saving data for spot %d: %d day items do not fit one transaction", spotID, total)
	}

	writes := make([]types.TransactWriteItem, 0, total)
	for _, d := range forecastDays.days {
		writes = append(writes, dayUpdate(s.config.ForecastTableName, spotID, d))
	}
	for _, d := range tideDays.days {
		writes = append(writes, dayUpdate(s.config.TideTableName, spotID, d))
	}

	if err := s.transact(ctx, writes); err != nil {
		return fmt.Errorf("saving data for spot %d: %w", spotID, err)
	}

	log.Debug().
		Uint("spot_id", spotID).
		Int("forecasts", len(forecasts)).
		Int("tides", len(tides)).
		Int("day_items", total).
		Msg("Upserted spot data")
	return nil
}

// transact retries cancelled or conflicting transactions with backoff. Any
// other error is returned at once.
func (s *DynamoStore) transact(ctx context.Context, writes []types.TransactWriteItem) error {
	var lastErr error
	for attempt := 0; attempt < s.config.MaxWriteRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(1<<(attempt-1)) * s.backoff):
			}
		}

		_, err := s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: writes})
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return err
		}
		lastErr = err
		log.Debug().Err(err).Int("attempt", attempt+1).Msg("Retrying transaction")
	}
	return fmt.Errorf("after %d attempts: %w", s.config.MaxWriteRetries, lastErr)
}

func retryable(err error) bool {
	var canceled *types.TransactionCanceledException
	var conflict *types.TransactionConflictException
	return errors.As(err, &canceled) || errors.As(err, &conflict)
}

func dayUpdate(table string, spotID uint, d *dayAttrs) types.TransactWriteItem {
	names := make(map[string]string, len(d.names))
	values := make(map[string]types.AttributeValue, len(d.values))
	sets := make([]string, len(d.names))
	for i, name := range d.names {
		n, v := fmt.Sprintf("#a%d", i), fmt.Sprintf(":a%d", i)
		names[n] = name
		values[v] = d.values[i]
		sets[i] = n + " = " + v
	}

	return types.TransactWriteItem{
		Update: &types.Update{
			TableName: aws.String(table),
			Key: map[string]types.AttributeValue{
				"spotId": spotKey(spotID),
				"day":    &types.AttributeValueMemberS{Value: d.day},
			},
			UpdateExpression:          aws.String("SET " + strings.Join(sets, ", ")),
			ExpressionAttributeNames:  names,
			ExpressionAttributeValues: values,
		},
	}
}

func (s *DynamoStore) ForecastsBetween(ctx context.Context, spotID uint, start, end time.Time) ([]models.ForecastRecord, error) {
	var records []models.ForecastRecord
	err := s.queryDays(ctx, s.config.ForecastTableName, spotID, "#day BETWEEN :start AND :end",
		map[string]types.AttributeValue{
			":start": &types.AttributeValueMemberS{Value: dayKey(start)},
			":end":   &types.AttributeValueMemberS{Value: dayKey(end)},
		},
		true, 0,
		func(item map[string]types.AttributeValue) (bool, error) {
			rows, err := forecastsIn(item)
			if err != nil {
				return false, err
			}
			for _, r := range rows {
				if !r.Timestamp.Before(start) && !r.Timestamp.After(end) {
					records = append(records, r)
				}
			}
			return false, nil
		})
	if err != nil {
		return nil, fmt.Errorf("querying forecasts: %w", err)
	}
	sortForecasts(records)
	return records, nil
}

func (s *DynamoStore) ClosestForecasts(ctx context.Context, spotID uint, start, end time.Time) ([]models.ForecastRecord, error) {
	var out []models.ForecastRecord

	err := s.queryDays(ctx, s.config.ForecastTableName, spotID, "#day <= :bound",
		map[string]types.AttributeValue{":bound": &types.AttributeValueMemberS{Value: dayKey(start)}},
		false, 2,
		func(item map[string]types.AttributeValue) (bool, error) {
			rows, err := forecastsIn(item)
			if err != nil {
				return false, err
			}
			for i := len(rows) - 1; i >= 0; i-- {
				if !rows[i].Timestamp.After(start) {
					out = append(out, rows[i])
					return true, nil
				}
			}
			return false, nil
		})
	if err != nil {
		return nil, fmt.Errorf("querying forecast before window: %w", err)
	}

	err = s.queryDays(ctx, s.config.ForecastTableName, spotID, "#day >= :bound",
		map[string]types.AttributeValue{":bound": &types.AttributeValueMemberS{Value: dayKey(end)}},
		true, 2,
		func(item map[string]types.AttributeValue) (bool, error) {
			rows, err := forecastsIn(item)
			if err != nil {
				return false, err
			}
			for _, r := range rows {
				if !r.Timestamp.Before(end) {
					out = append(out, r)
					return true, nil
				}
			}
			return false, nil
		})
	if err != nil {
		return nil, fmt.Errorf("querying forecast after window: %w", err)
	}

	return out, nil
}

func (s *DynamoStore) TidesBetween(ctx context.Context, spotID uint, start, end time.Time) ([]models.TideEvent, error) {
	var events []models.TideEvent
	err := s.queryDays(ctx, s.config.TideTableName, spotID, "#day BETWEEN :start AND :end",
		map[string]types.AttributeValue{
			":start": &types.AttributeValueMemberS{Value: dayKey(start)},
			":end":   &types.AttributeValueMemberS{Value: dayKey(end)},
		},
		true, 0,
		func(item map[string]types.AttributeValue) (bool, error) {
			for name, av := range item {
				if !strings.HasPrefix(name, tideAttrPrefix) {
					continue
				}
				var ti tideItem
				if err := attributevalue.Unmarshal(av, &ti); err != nil {
					return false, fmt.Errorf("unmarshaling tide %q: %w", name, err)
				}
				ts, err := parseTime(ti.Timestamp)
				if err != nil {
					return false, fmt.Errorf("parsing tide timestamp %q: %w", ti.Timestamp, err)
				}
				if ts.Before(start) || ts.After(end) {
					continue
				}
				events = append(events, models.TideEvent{
					SpotID:    ti.SpotID,
					Timestamp: ts,
					Height:    ti.Height,
					Type:      models.TideType(ti.Type),
				})
			}
			return false, nil
		})
	if err != nil {
		return nil, fmt.Errorf("querying tides: %w", err)
	}

	sort.Slice(events, func(i, j int) bool {
		if events[i].Timestamp.Equal(events[j].Timestamp) {
			return events[i].Type < events[j].Type
		}
		return events[i].Timestamp.Before(events[j].Timestamp)
	})
	return events, nil
}

// queryDays walks a spot's day items in key order until visit asks to stop.
// A non-zero pageSize bounds each page read.
func (s *DynamoStore) queryDays(ctx context.Context, table string, spotID uint, dayCondition string,
	values map[string]types.AttributeValue, ascending bool, pageSize int32,
	visit func(map[string]types.AttributeValue) (bool, error)) error {
	values[":spot"] = spotKey(spotID)
	input := &dynamodb.QueryInput{
		TableName:                 aws.String(table),
		KeyConditionExpression:    aws.String("spotId = :spot AND " + dayCondition),
		ExpressionAttributeNames:  map[string]string{"#day": "day"},
		ExpressionAttributeValues: values,
		ScanIndexForward:          aws.Bool(ascending),
	}
	if pageSize > 0 {
		input.Limit = aws.Int32(pageSize)
	}

	paginator := dynamodb.NewQueryPaginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return err
		}
		for _, item := range page.Items {
			stop, err := visit(item)
			if err != nil {
				return err
			}
			if stop {
				return nil
			}
		}
	}
	return nil
}

// forecastsIn unpacks the hourly attributes of a day item, oldest first
func forecastsIn(item map[string]types.AttributeValue) ([]models.ForecastRecord, error) {
	var records []models.ForecastRecord
	for name, av := range item {
		if !strings.HasPrefix(name, forecastAttrPrefix) {
			continue
		}
		var fi forecastItem
		if err := attributevalue.Unmarshal(av, &fi); err != nil {
			return nil, fmt.Errorf("unmarshaling forecast %q: %w", name, err)
		}
		ts, err := parseTime(fi.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("parsing forecast timestamp %q: %w", fi.Timestamp, err)
		}
		updated, _ := time.Parse(time.RFC3339, fi.UpdatedAt)
		records = append(records, models.ForecastRecord{
			SpotID:        fi.SpotID,
			Timestamp:     ts,
			WaveHeight:    fi.WaveHeight,
			WaveDirection: fi.WaveDirection,
			Period:        fi.Period,
			Energy:        fi.Energy,
			WindSpeed:     fi.WindSpeed,
			WindDirection: fi.WindDirection,
			Rating:        fi.Rating,
			UpdatedAt:     updated,
		})
	}
	sortForecasts(records)
	return records, nil
}

func sortForecasts(records []models.ForecastRecord) {
	sort.Slice(records, func(i, j int) bool { return records[i].Timestamp.Before(records[j].Timestamp) })
}

func toForecastItem(f models.ForecastRecord) forecastItem {
	return forecastItem{
		SpotID:        f.SpotID,
		Timestamp:     formatTime(f.Timestamp),
		WaveHeight:    f.WaveHeight,
		WaveDirection: f.WaveDirection,
		Period:        f.Period,
		Energy:        f.Energy,
		WindSpeed:     f.WindSpeed,
		WindDirection: f.WindDirection,
		Rating:        f.Rating,
		UpdatedAt:     f.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func toTideItem(t models.TideEvent) tideItem {
	return tideItem{
		SpotID:    t.SpotID,
		Timestamp: formatTime(t.Timestamp),
		Height:    t.Height,
		Type:      string(t.Type),
	}
}

func forecastAttr(t time.Time) string {
	return forecastAttrPrefix + t.UTC().Format("150405")
}

func tideAttr(t time.Time, tideType models.TideType) string {
	return tideAttrPrefix + t.UTC().Format("150405") + "#" + string(tideType)
}

func spotKey(spotID uint) types.AttributeValue {
	return &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", spotID)}
}

func dayKey(t time.Time) string {
	return t.UTC().Format(dynamoDayLayout)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(dynamoTimeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(dynamoTimeLayout, s)
}

var (
	_ ForecastStore = (*DynamoStore)(nil)
	_ ForecastStore = (*GormStore)(nil)
	_ SpotStore     = (*GormStore)(nil)
	_ SessionStore  = (*GormStore)(nil)
)
