// Package sink evolves SQL Server tables to match stream schemas and loads
// records into them.
//
// The Evolver owns DDL: namespaces are created once (case-insensitively),
// tables are created from inferred column types, and columns are only ever
// added or renamed. The Loader conforms records and inserts them in a single
// transaction per call, toggling IDENTITY_INSERT when records carry values
// for an identity column. The BatchPipeline feeds staged batch files through a
// Loader and releases them afterwards.
//
// Example:
//
//	ev := sink.NewEvolver(st, sink.EvolverConfig{
//	    Engine:         sqltype.NewEngine(true, logger),
//	    AllowColumnAdd: true,
//	})
//	if _, err := ev.PrepareTable(ctx, name, s, s.KeyProperties); err != nil {
//	    return err
//	}
//	loader := sink.NewLoader(st, name, sink.LoaderConfig{})
//	n, err := loader.Load(ctx, s, records)
package sink
