// Package files discovers sales exports on disk. When the configured
// dataset path is a directory, the loader serves the newest CSV or XLSX file
// in it, so a nightly export can be dropped next to older ones.
//
//	discovery := files.NewDiscovery("", ".csv", ".xlsx")
//	latest, err := discovery.Latest("data/exports")
package files
