// Copyright (c) 2022 Hirotsuna Mizuno. All rights reserved.
// Use of this source code is governed by the MIT license that can be found in
// the LICENSE file.

/*
Package localcache provides a simple disk-backed blob cache. Each blob is
stored as a plain file named after its identifier in a dedicated namespace
directory under the user's persistent data directory.

There is no eviction, expiry or size limit. Entries stay on the disk until
they are removed explicitly, or the whole cache is purged.

Identifiers may contain percent-encoded characters, which are decoded before
being used as file names. A decoded identifier that contains path separators
creates a nested file below the namespace directory, as long as the resulting
path stays inside it. Names starting with ".localcache-" are reserved for the
temporary files of in-flight writes, and identifiers using them are rejected.
*/
package localcache
