// Package extract normalises raw tracker issues into types.Record values.
//
// Extractor.Record handles one issue; Extractor.Batch handles a slice and
// reports every skipped issue instead of failing the batch.
//
// Estimate lookup tries Options.EstimateFields in order, then (when
// Options.Heuristic is set) scans custom fields matching
// Options.CustomFieldPattern for the first number in (0, 100]. The scan is
// best-effort: it has no way to know which custom field really holds story
// points. Candidates are visited in ascending custom-field number so the
// result does not depend on map iteration order.
//
// Effort lookup takes the first positive source of:
//
//	timespent | aggregatetimespent | timeSpentSeconds
//	timetracking.timeSpentSeconds
//	Σ worklog.worklogs[].timeSpentSeconds (or top-level worklogs[])
//
// Seconds are converted to hours. Sources are never summed together.
package extract
