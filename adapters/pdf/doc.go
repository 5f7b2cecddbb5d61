// Package invoicepdf assembles captured invoice bitmaps into PDF documents.
//
// Pages are portrait, measured in millimeters, with a fixed margin on every
// side. The bitmap is scaled to the content width and its height follows the
// aspect ratio, so tall invoices land on one over-tall page region.
package invoicepdf
