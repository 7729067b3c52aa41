// Package repository materializes artifact files into a local Maven-layout
// cache.
//
// # Sources
//
// A [Source] is anything that can produce the bytes of an artifact. Two
// implementations exist:
//
//   - [Local]: the on-disk cache rooted at a directory
//   - [Remote]: an HTTP(S) Maven repository
//
// # Fetching
//
// [Chain] ties them together. [Chain.Materialize] returns the local path of
// an artifact, consulting the local cache first and then each remote in
// priority order:
//
//	chain := repository.NewChain(local, repos, repository.Options{})
//	path, origin, err := chain.Materialize(ctx, coord)
//
// origin is the URL of the repository the file was downloaded from, or
// empty when the file was already cached.
//
// # Cache Layout and Safety
//
// Files are stored at the standard repository path derived from the
// coordinate, so independent processes agree on cache hits. The cache is
// append-only: downloads are written to a temporary file in the
// destination directory, verified, fsynced and renamed into place. An
// interrupted download therefore never leaves a file at the final path.
// Zero-length files are treated as missing and replaced.
//
// # Failures
//
// Transport failures and integrity mismatches (Content-Length or published
// .sha1 checksum) are retried with backoff, then the next repository is
// tried. When every repository fails, the error is an *errors.Error naming
// the coordinate and the repositories attempted, with code NOT_FOUND,
// CORRUPT_ARTIFACT or TRANSIENT_FETCH.
package repository
