// Package output encodes reports, journeys and CLI responses as
// deterministic JSON: equal values give byte-identical output, so archived
// payloads and golden test files compare cleanly.
//
// Encoding rules:
//
//   - object keys are sorted, struct fields included
//   - floats are rounded to 6 decimal places
//   - nil values and empty slices or maps are left out
//   - json.Marshaler and encoding.TextMarshaler implementations are
//     honoured, and a marshaler's own JSON is re-sorted
package output
