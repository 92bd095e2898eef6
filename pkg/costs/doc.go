// Package costs computes the charge for a single usage row.
//
// Token cells are coerced leniently: empty, non-numeric or negative values
// count as zero tokens so one bad cell never aborts a whole file. Rows whose
// Kind marks them as free, and rows for models missing from the pricing
// table, cost nothing.
package costs
