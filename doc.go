// Copyright 2026 leo-automation. All rights reserved.
// Use of this source code is governed by an MIT-style license
// that can be found in the LICENSE file.

/*
Package leoring archives doorbell event recordings to cloud storage.

leo-ring lists the recent events of a single doorbell, copies each recording to OneDrive
(or Google Drive) under a date based folder layout and keeps a monthly .xlsx index of the
archived events, optionally mirrored to a Google Sheets worksheet. Re-running over the same
window is safe: events already in the index are skipped.

leo-ring supports the following commands:

  - run, to archive the recordings in the lookback window once and print the results
  - serve, to run the archiver on request over HTTP and expose Prometheus metrics
  - schedule, to run the archiver periodically, optionally as an OS service
  - authorise, to authorise access to OneDrive or Google Drive/Sheets
  - ring-login, to create the doorbell account credential
  - probe, to check that the storage backend can resolve the archive folders
  - get, to download a monthly index as a TSV or .xlsx file
  - put, to upload a local file to the storage backend
*/
package leoring
