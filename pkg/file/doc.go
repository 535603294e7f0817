// Package file issues time-limited download links for purchased digital goods
// stored in S3 or an S3-compatible service.
//
//	links, err := file.NewS3Presigner(ctx, cfg)
//	url, err := links.Link(ctx, "products/guide-v2.pdf")
//
// Link checks the object exists before signing so a typo in the catalog
// surfaces as NotFound at verification time rather than as a dead link in the
// customer's inbox.
package file
