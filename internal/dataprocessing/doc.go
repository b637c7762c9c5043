// Package dataprocessing loads sales exports into analytics rows.
//
// A dataset is a CSV or XLSX table whose header names the columns Date,
// Transaction ID, Region, Product Category, Product Name, Payment Method,
// Units Sold, Unit Price and, optionally, Total Revenue. Common spellings such
// as "order_id" or "quantity" are accepted.
//
// Loading is lenient with cell contents and strict with structure: a missing
// required column fails the load, while a malformed number becomes zero and a
// malformed date leaves the row undated. LoadStats reports both.
//
//	loader := dataprocessing.NewLoader(logger, dataprocessing.WithSheet("Sales"))
//	ds, err := loader.Load(ctx, "data/Online Sales Data.csv")
package dataprocessing
