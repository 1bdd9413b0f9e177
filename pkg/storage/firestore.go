package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/levenlabs/go-lflag"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/ecosphere/forecast/pkg/log"
	"github.com/ecosphere/forecast/pkg/types"
)

// FirestoreProvider implements the Database interface using Google Cloud
// Firestore. It persists settings, metric samples, and forecast runs to
// per-site collections.
type FirestoreProvider struct {
	client    *firestore.Client
	projectID string
	database  string
}

// configuredFirestore sets up the Firestore provider.
// It registers flags for configuration.
func configuredFirestore() *FirestoreProvider {
	projectID := lflag.String("firestore-project-id", "", "Google Cloud Project ID for Firestore")
	database := lflag.String("firestore-database", "", "Google Cloud Firestore Database")
	emulator := lflag.String("firestore-emulator", "", "Use Firestore emulator")

	f := &FirestoreProvider{}

	lflag.Do(func() {
		f.projectID = *projectID
		f.database = *database

		// set this because that's how firestore client expects it
		if *emulator != "" {
			os.Setenv("FIRESTORE_EMULATOR_HOST", *emulator)
		}
	})

	return f
}

// Validate checks if the provider is properly configured.
func (f *FirestoreProvider) Validate() error {
	// Project ID verification could be here, but we allow empty if inferred.
	return nil
}

// Init initializes the Firestore client.
// This must be called before using the provider methods.
func (f *FirestoreProvider) Init(ctx context.Context) error {
	projectID := f.projectID
	if projectID == "" {
		projectID = firestore.DetectProjectID
	}
	database := f.database
	if database == "" {
		database = firestore.DefaultDatabaseID
	}
	client, err := firestore.NewClientWithDatabase(ctx, projectID, database)
	if err != nil {
		return fmt.Errorf("failed to create firestore client (project=%s, database=%s): %w", projectID, database, err)
	}
	f.client = client
	return nil
}

// Close closes the Firestore client connection.
func (f *FirestoreProvider) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}

func (f *FirestoreProvider) getCollection(siteID, name string) (*firestore.CollectionRef, error) {
	if siteID == "" {
		return nil, fmt.Errorf("siteID cannot be empty")
	}
	return f.client.Collection("sites").Doc(siteID).Collection(name), nil
}

// getKindCollection resolves a per-metric sub-collection like "samples-consumption".
func (f *FirestoreProvider) getKindCollection(siteID, prefix string, kind types.MetricKind) (*firestore.CollectionRef, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("invalid metric kind: %s", kind)
	}
	return f.getCollection(siteID, fmt.Sprintf("%s-%s", prefix, kind))
}

// GetSettings retrieves the dynamic configuration from the "config/settings" document.
func (f *FirestoreProvider) GetSettings(ctx context.Context, siteID string) (types.Settings, int, error) {
	coll, err := f.getCollection(siteID, "config")
	if err != nil {
		return types.Settings{}, 0, err
	}
	doc, err := coll.Doc("settings").Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			// Return default settings if not found
			return types.Settings{}, 0, nil
		}
		return types.Settings{}, 0, fmt.Errorf("failed to fetch settings doc: %w", err)
	}

	// Read version if available (default 0)
	var version int
	if v, err := doc.DataAt("version"); err == nil {
		if vInt, ok := v.(int64); ok {
			version = int(vInt)
		}
	}

	val, err := doc.DataAt("json")
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "settings doc missing json", slog.String("siteID", siteID))
		return types.Settings{}, 0, fmt.Errorf("settings document missing 'json' field: %w", err)
	}

	jsonStr, ok := val.(string)
	if !ok {
		log.Ctx(ctx).WarnContext(ctx, "settings doc json not string", slog.String("siteID", siteID))
		return types.Settings{}, 0, fmt.Errorf("settings 'json' field is not a string")
	}

	var s types.Settings
	if err := json.Unmarshal([]byte(jsonStr), &s); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to unmarshal settings json", slog.String("siteID", siteID), slog.Any("err", err))
		return types.Settings{}, 0, fmt.Errorf("failed to unmarshal settings json: %w", err)
	}
	return s, version, nil
}

// SetSettings saves the dynamic configuration to the "config/settings" document.
// It stores the settings as a JSON string for portability.
func (f *FirestoreProvider) SetSettings(ctx context.Context, siteID string, settings types.Settings, version int) error {
	jsonBytes, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	coll, err := f.getCollection(siteID, "config")
	if err != nil {
		return err
	}
	_, err = coll.Doc("settings").Set(ctx, map[string]interface{}{
		"json":    string(jsonBytes),
		"version": version,
	})
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

// UpsertSamples adds or updates a batch of metric samples in the
// "samples-<kind>" sub-collection. The document ID is the RFC3339 timestamp
// for efficient range queries, so re-sending a sample overwrites it.
func (f *FirestoreProvider) UpsertSamples(ctx context.Context, siteID string, kind types.MetricKind, samples []types.MetricSample, version int) error {
	if len(samples) == 0 {
		return nil
	}
	coll, err := f.getKindCollection(siteID, "samples", kind)
	if err != nil {
		return err
	}

	bw := f.client.BulkWriter(ctx)
	jobs := make([]*firestore.BulkWriterJob, 0, len(samples))
	for _, s := range samples {
		jsonBytes, err := json.Marshal(s)
		if err != nil {
			bw.End()
			return fmt.Errorf("failed to marshal sample: %w", err)
		}
		docID := s.Timestamp.UTC().Format(time.RFC3339)
		j, err := bw.Set(coll.Doc(docID), map[string]interface{}{
			"json":      string(jsonBytes),
			"timestamp": s.Timestamp,
			"version":   version,
		})
		if err != nil {
			bw.End()
			return fmt.Errorf("failed to enqueue sample %s: %w", docID, err)
		}
		jobs = append(jobs, j)
	}
	bw.End()

	for i, j := range jobs {
		if _, err := j.Results(); err != nil {
			return fmt.Errorf("failed to upsert sample %s: %w", samples[i].Timestamp.UTC().Format(time.RFC3339), err)
		}
	}
	return nil
}

// GetSampleHistory retrieves metric samples within the specified time range.
// Uses document ID range queries for efficient filtering without reading all documents.
func (f *FirestoreProvider) GetSampleHistory(ctx context.Context, siteID string, kind types.MetricKind, start, end time.Time) ([]types.MetricSample, error) {
	coll, err := f.getKindCollection(siteID, "samples", kind)
	if err != nil {
		return nil, err
	}
	startDocID := start.UTC().Format(time.RFC3339)
	endDocID := end.UTC().Format(time.RFC3339)

	iter := coll.
		Where(firestore.DocumentID, ">=", coll.Doc(startDocID)).
		Where(firestore.DocumentID, "<", coll.Doc(endDocID)).
		OrderBy(firestore.DocumentID, firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	var samples []types.MetricSample
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error iterating samples: %w", err)
		}

		val, err := doc.DataAt("json")
		if err != nil {
			log.Ctx(ctx).WarnContext(ctx, "sample doc missing json", slog.String("docID", doc.Ref.ID), slog.String("siteID", siteID), slog.Any("err", err))
			return nil, fmt.Errorf("sample document %s missing 'json' field: %w", doc.Ref.ID, err)
		}

		jsonStr, ok := val.(string)
		if !ok {
			log.Ctx(ctx).WarnContext(ctx, "sample doc json not string", slog.String("docID", doc.Ref.ID), slog.String("siteID", siteID))
			return nil, fmt.Errorf("sample document %s 'json' field is not string", doc.Ref.ID)
		}

		var s types.MetricSample
		if err := json.Unmarshal([]byte(jsonStr), &s); err != nil {
			log.Ctx(ctx).WarnContext(ctx, "failed to unmarshal sample", slog.String("docID", doc.Ref.ID), slog.String("siteID", siteID), slog.Any("err", err))
			return nil, fmt.Errorf("failed to unmarshal sample (id=%s): %w", doc.Ref.ID, err)
		}
		samples = append(samples, s)
	}
	return samples, nil
}

// GetLatestSampleTime retrieves the timestamp of the last stored sample for a metric.
func (f *FirestoreProvider) GetLatestSampleTime(ctx context.Context, siteID string, kind types.MetricKind) (time.Time, int, error) {
	coll, err := f.getKindCollection(siteID, "samples", kind)
	if err != nil {
		return time.Time{}, 0, err
	}

	// firestore automatically creates indexes for top-level fields
	iter := coll.
		OrderBy("timestamp", firestore.Desc).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return time.Time{}, 0, nil
	}
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("failed to get latest sample doc: %w", err)
	}

	ts, err := time.Parse(time.RFC3339, doc.Ref.ID)
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("invalid sample doc id %s: %w", doc.Ref.ID, err)
	}

	// Read version if available (default 0)
	var version int
	if v, err := doc.DataAt("version"); err == nil {
		if vInt, ok := v.(int64); ok {
			version = int(vInt)
		}
	}

	return ts, version, nil
}

// InsertForecast adds a forecast run to the "forecasts-<kind>" sub-collection
// as a JSON blob. The document ID is the RFC3339 creation timestamp for
// efficient range queries.
func (f *FirestoreProvider) InsertForecast(ctx context.Context, siteID string, record types.ForecastRecord) error {
	jsonBytes, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal forecast record: %w", err)
	}

	coll, err := f.getKindCollection(siteID, "forecasts", record.Kind)
	if err != nil {
		return err
	}
	docID := record.CreatedAt.UTC().Format(time.RFC3339)
	_, err = coll.Doc(docID).Set(ctx, map[string]interface{}{
		"json":      string(jsonBytes),
		"timestamp": record.CreatedAt,
		"version":   types.CurrentForecastHistoryVersion,
	})
	if err != nil {
		return fmt.Errorf("failed to insert forecast record: %w", err)
	}
	return nil
}

// GetForecastHistory retrieves forecast runs created within the specified time range.
func (f *FirestoreProvider) GetForecastHistory(ctx context.Context, siteID string, kind types.MetricKind, start, end time.Time) ([]types.ForecastRecord, error) {
	coll, err := f.getKindCollection(siteID, "forecasts", kind)
	if err != nil {
		return nil, err
	}
	startDocID := start.UTC().Format(time.RFC3339)
	endDocID := end.UTC().Format(time.RFC3339)

	iter := coll.
		Where(firestore.DocumentID, ">=", coll.Doc(startDocID)).
		Where(firestore.DocumentID, "<", coll.Doc(endDocID)).
		OrderBy(firestore.DocumentID, firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	var records []types.ForecastRecord
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error iterating forecast records: %w", err)
		}

		val, err := doc.DataAt("json")
		if err != nil {
			log.Ctx(ctx).WarnContext(ctx, "forecast doc missing json", slog.String("docID", doc.Ref.ID), slog.String("siteID", siteID), slog.Any("err", err))
			return nil, fmt.Errorf("forecast document %s missing 'json' field: %w", doc.Ref.ID, err)
		}

		jsonStr, ok := val.(string)
		if !ok {
			log.Ctx(ctx).WarnContext(ctx, "forecast doc json not string", slog.String("docID", doc.Ref.ID), slog.String("siteID", siteID))
			return nil, fmt.Errorf("forecast document %s 'json' field is not string", doc.Ref.ID)
		}

		var r types.ForecastRecord
		if err := json.Unmarshal([]byte(jsonStr), &r); err != nil {
			log.Ctx(ctx).WarnContext(ctx, "failed to unmarshal forecast record", slog.String("docID", doc.Ref.ID), slog.String("siteID", siteID), slog.Any("err", err))
			return nil, fmt.Errorf("failed to unmarshal forecast record (id=%s): %w", doc.Ref.ID, err)
		}
		records = append(records, r)
	}
	return records, nil
}

// GetLatestForecast retrieves the most recently created forecast run for a
// metric, or nil when the site has none.
func (f *FirestoreProvider) GetLatestForecast(ctx context.Context, siteID string, kind types.MetricKind) (*types.ForecastRecord, error) {
	coll, err := f.getKindCollection(siteID, "forecasts", kind)
	if err != nil {
		return nil, err
	}
	iter := coll.
		OrderBy("timestamp", firestore.Desc).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest forecast doc: %w", err)
	}

	val, err := doc.DataAt("json")
	if err != nil {
		return nil, fmt.Errorf("forecast document %s missing 'json' field: %w", doc.Ref.ID, err)
	}
	jsonStr, ok := val.(string)
	if !ok {
		return nil, fmt.Errorf("forecast document %s 'json' field is not string", doc.Ref.ID)
	}

	var r types.ForecastRecord
	if err := json.Unmarshal([]byte(jsonStr), &r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal forecast record (id=%s): %w", doc.Ref.ID, err)
	}
	return &r, nil
}

// GetSite retrieves a site from the "sites" collection.
func (f *FirestoreProvider) GetSite(ctx context.Context, siteID string) (types.Site, error) {
	doc, err := f.client.Collection("sites").Doc(siteID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return types.Site{}, fmt.Errorf("%w: %s", ErrSiteNotFound, siteID)
		}
		return types.Site{}, fmt.Errorf("failed to get site %s: %w", siteID, err)
	}

	val, err := doc.DataAt("json")
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "site doc missing json", slog.String("siteID", siteID), slog.Any("err", err))
		return types.Site{}, fmt.Errorf("site %s missing json: %w", siteID, err)
	}
	jsonStr, ok := val.(string)
	if !ok {
		log.Ctx(ctx).WarnContext(ctx, "site doc json not string", slog.String("siteID", siteID))
		return types.Site{}, fmt.Errorf("site %s json not string", siteID)
	}

	var site types.Site
	if err := json.Unmarshal([]byte(jsonStr), &site); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to unmarshal site", slog.String("siteID", siteID), slog.Any("err", err))
		return types.Site{}, fmt.Errorf("failed to unmarshal site %s: %w", siteID, err)
	}
	return site, nil
}

// ListSites retrieves all sites from the "sites" collection.
func (f *FirestoreProvider) ListSites(ctx context.Context) ([]types.Site, error) {
	iter := f.client.Collection("sites").Documents(ctx)
	defer iter.Stop()

	var sites []types.Site
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error iterating sites: %w", err)
		}

		val, err := doc.DataAt("json")
		if err != nil {
			log.Ctx(ctx).WarnContext(ctx, "site doc missing json", slog.String("siteID", doc.Ref.ID))
			// Skip malformed documents
			continue
		}
		jsonStr, ok := val.(string)
		if !ok {
			log.Ctx(ctx).WarnContext(ctx, "site doc json not string", slog.String("siteID", doc.Ref.ID))
			continue
		}

		var site types.Site
		if err := json.Unmarshal([]byte(jsonStr), &site); err != nil {
			log.Ctx(ctx).WarnContext(ctx, "failed to unmarshal site", slog.String("siteID", doc.Ref.ID), slog.Any("err", err))
			// Skip malformed JSON
			continue
		}
		sites = append(sites, site)
	}
	return sites, nil
}

// CreateSite creates a new site document in the "sites" collection.
// It fails if the site already exists.
func (f *FirestoreProvider) CreateSite(ctx context.Context, siteID string, site types.Site) error {
	siteJSON, err := json.Marshal(site)
	if err != nil {
		return fmt.Errorf("failed to marshal site %s: %w", siteID, err)
	}
	_, err = f.client.Collection("sites").Doc(siteID).Create(ctx, map[string]interface{}{
		"json": string(siteJSON),
	})
	if err != nil {
		return fmt.Errorf("failed to create site %s: %w", siteID, err)
	}
	return nil
}

// UpdateSite updates a site document in the "sites" collection.
func (f *FirestoreProvider) UpdateSite(ctx context.Context, siteID string, site types.Site) error {
	siteJSON, err := json.Marshal(site)
	if err != nil {
		return fmt.Errorf("failed to marshal site %s: %w", siteID, err)
	}
	_, err = f.client.Collection("sites").Doc(siteID).Set(ctx, map[string]interface{}{
		"json": string(siteJSON),
	}, firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("failed to update site %s: %w", siteID, err)
	}
	return nil
}
