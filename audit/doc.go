// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package audit records tag changes and reads of voter data.

Recorder.RecordTagChange runs on the transaction that changed the tag.
If it fails the caller rolls back, so a tag change and its entry are
committed together or not at all. Equal old and new values return
ErrNoChange and write nothing.

Reads go to a separate access log through Recorder.RecordAccess and are
paged with ListAccess. They never appear among tag changes.

Entries are append only. Ids are UUIDv7 so List orders newest first by id.
*/
package audit
