// Package normalisers turns raw document bytes into plain text.
//
// Each subpackage handles one format and implements driven.Normaliser:
//
//   - plaintext: UTF-8 text (.txt)
//   - docx: Word documents (.docx)
//   - pdf: PDF through pdftotext (.pdf)
//
// Registry dispatches on MIME type, preferring the highest priority
// normaliser registered for it.
package normalisers
