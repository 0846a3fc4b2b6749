// Package utils provides loose value conversions for legacy data, such as
// CSV cells written by spreadsheets ("3.0" nights, "true"/"1" flags).
package utils
