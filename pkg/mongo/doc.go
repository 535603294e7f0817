// Package mongo manages the MongoDB client used by the document-backed plan
// store and purchase ledger.
//
//	db, err := mongo.NewWithDatabase(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer db.Client().Disconnect(context.Background())
//
// Driver errors are mapped to apperr kinds by [Classify]. A duplicate key
// becomes Conflict so ledgers can fall back to reading the existing document.
package mongo
