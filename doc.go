// Package target loads a stream of SCHEMA, RECORD, BATCH and STATE messages
// into Microsoft SQL Server.
//
// The target package ties the building blocks together:
//   - sqltype infers SQL Server column types from JSON-Schema properties
//   - sink creates and additively evolves schemas, tables and columns,
//     conforms records and bulk-inserts them in transactions
//   - storage and internal/compress read staged batch files from local
//     disk or S3
//   - message decodes the inbound JSON or MessagePack stream
//
// # Quick Start
//
//	package main
//
//	import (
//	    "context"
//	    "log"
//	    "os"
//
//	    target "github.com/hugr-lab/target-mssql"
//	    "github.com/hugr-lab/target-mssql/message"
//	)
//
//	func main() {
//	    cfg, err := target.LoadConfig("config.json")
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    ctx := context.Background()
//	    t, err := target.Open(ctx, *cfg, target.Options{StateOutput: os.Stdout})
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    defer t.Close()
//
//	    if err := t.Run(ctx, message.NewJSONReader(os.Stdin)); err != nil {
//	        log.Fatal(err)
//	    }
//	}
//
// # Streams and Tables
//
// Every stream is loaded into one table. The stream "sales-orders" lands in
// [sales].[orders] unless Config.DefaultTargetSchema overrides the schema;
// the reserved schema "public" is rewritten to "dbo". See TableNameFor.
//
// Each SCHEMA message reconciles the table: the schema and table are created
// when missing, and missing columns are added when Config.AllowColumnAdd is
// set. Existing columns are never altered or dropped.
//
// # Loading
//
// RECORD messages are buffered per stream and loaded once Config.MaxBatchSize
// records are pending, before a schema change, before a BATCH of the same
// stream, and at the end of the input. A load is one transaction of
// multi-row parameterised INSERT statements. Rows carrying explicit values
// for an IDENTITY key are inserted with IDENTITY_INSERT enabled for the
// duration of that transaction.
//
// Insert failures are logged and the batch is skipped unless
// Config.StrictInsert is set, in which case they stop the target.
//
// # State
//
// STATE values are written to Options.StateOutput only after every record
// received before them has been loaded.
package target
