package docstore

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// fsClient adapts a Cloud Firestore client to the Client interface.
// Firestore natively provides everything the interface promises:
// serializable transactions with client-enforced read-before-write
// ordering, retry-on-conflict, and server-side field transforms.
type fsClient struct {
	client *firestore.Client
}

// NewFirestore connects to the Firestore database of the given
// project. credentialsFile may be empty, in which case application
// default credentials are used.
func NewFirestore(ctx context.Context, projectID, credentialsFile string) (Client, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}
	return &fsClient{client: client}, nil
}

func (c *fsClient) Collection(name string) CollectionRef {
	col := c.client.Collection(name)
	return fsCol{col: col, query: col.Query}
}

func (c *fsClient) Close() error { return c.client.Close() }

func (c *fsClient) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	err := c.client.RunTransaction(ctx, func(ctx context.Context, t *firestore.Transaction) error {
		return fn(ctx, fsTx{tx: t})
	})
	return mapTxError(err)
}

// mapTxError folds transport-level failures into the store's error
// taxonomy. Application errors returned by the callback pass through
// untouched so errors.Is keeps working for the caller.
func mapTxError(err error) error {
	if err == nil {
		return nil
	}
	switch status.Code(err) {
	case codes.Aborted:
		return fmt.Errorf("%w: %v", ErrAborted, err)
	case codes.DeadlineExceeded, codes.Unavailable:
		return fmt.Errorf("%w: %v", ErrUnknown, err)
	}
	return err
}

type fsDoc struct {
	ref *firestore.DocumentRef
}

func (d fsDoc) ID() string   { return d.ref.ID }
func (d fsDoc) Path() string { return d.ref.Path }

func (d fsDoc) Collection(name string) CollectionRef {
	col := d.ref.Collection(name)
	return fsCol{col: col, query: col.Query}
}

func (d fsDoc) Get(ctx context.Context) (Snapshot, error) {
	ds, err := d.ref.Get(ctx)
	return toSnapshot(d.ref.ID, ds, err)
}

func (d fsDoc) Set(ctx context.Context, data map[string]any) error {
	_, err := d.ref.Set(ctx, translateSentinels(data))
	return err
}

func (d fsDoc) Merge(ctx context.Context, data map[string]any) error {
	_, err := d.ref.Set(ctx, translateSentinels(data), firestore.MergeAll)
	return err
}

func (d fsDoc) Delete(ctx context.Context) error {
	_, err := d.ref.Delete(ctx)
	return err
}

func toSnapshot(id string, ds *firestore.DocumentSnapshot, err error) (Snapshot, error) {
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return Snapshot{ID: id, Exists: false}, nil
		}
		return Snapshot{}, err
	}
	if !ds.Exists() {
		return Snapshot{ID: id, Exists: false}, nil
	}
	return Snapshot{ID: id, Exists: true, Data: ds.Data()}, nil
}

// translateSentinels rewrites the package's write sentinels into the
// Firestore SDK equivalents, recursing into nested maps.
func translateSentinels(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		switch sv := v.(type) {
		case serverTimestamp:
			out[k] = firestore.ServerTimestamp
		case incrementValue:
			out[k] = firestore.Increment(sv.n)
		case arrayUnion:
			out[k] = firestore.ArrayUnion(sv.values...)
		case map[string]any:
			out[k] = translateSentinels(sv)
		default:
			out[k] = v
		}
	}
	return out
}

type fsCol struct {
	col   *firestore.CollectionRef
	query firestore.Query
}

func (c fsCol) Doc(id string) DocRef { return fsDoc{ref: c.col.Doc(id)} }
func (c fsCol) NewDoc() DocRef       { return fsDoc{ref: c.col.NewDoc()} }

func (c fsCol) Where(field, op string, value any) Query {
	return fsQuery{query: c.query.Where(field, op, value)}
}

func (c fsCol) OrderBy(field string, dir Direction) Query {
	return fsQuery{query: c.query.OrderBy(field, toFsDirection(dir))}
}

func (c fsCol) Limit(n int) Query {
	return fsQuery{query: c.query.Limit(n)}
}

func (c fsCol) Documents(ctx context.Context) ([]Snapshot, error) {
	return fsQuery{query: c.query}.Documents(ctx)
}

type fsQuery struct {
	query firestore.Query
}

func (q fsQuery) Where(field, op string, value any) Query {
	return fsQuery{query: q.query.Where(field, op, value)}
}

func (q fsQuery) OrderBy(field string, dir Direction) Query {
	return fsQuery{query: q.query.OrderBy(field, toFsDirection(dir))}
}

func (q fsQuery) Limit(n int) Query {
	return fsQuery{query: q.query.Limit(n)}
}

func (q fsQuery) Documents(ctx context.Context) ([]Snapshot, error) {
	docs, err := q.query.Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	out := make([]Snapshot, 0, len(docs))
	for _, ds := range docs {
		out = append(out, Snapshot{ID: ds.Ref.ID, Exists: true, Data: ds.Data()})
	}
	return out, nil
}

func toFsDirection(dir Direction) firestore.Direction {
	if dir == Desc {
		return firestore.Desc
	}
	return firestore.Asc
}

type fsTx struct {
	tx *firestore.Transaction
}

func (t fsTx) Get(ref DocRef) (Snapshot, error) {
	fd := ref.(fsDoc)
	ds, err := t.tx.Get(fd.ref)
	return toSnapshot(fd.ref.ID, ds, err)
}

func (t fsTx) Set(ref DocRef, data map[string]any) {
	// Errors surface at commit through RunTransaction.
	_ = t.tx.Set(ref.(fsDoc).ref, translateSentinels(data))
}

func (t fsTx) Merge(ref DocRef, data map[string]any) {
	_ = t.tx.Set(ref.(fsDoc).ref, translateSentinels(data), firestore.MergeAll)
}

func (t fsTx) Delete(ref DocRef) {
	_ = t.tx.Delete(ref.(fsDoc).ref)
}
