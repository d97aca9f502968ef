// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package report renders the meeting protocol and the attendance list of a
session as plain-text documents.

Templates live in templates/ and are embedded at build time. Data comes from a
Source, normally the session controller, so the reports reflect the same
tally the chat shows.

Fields the admin has not filled in (council profile, protocol number, session
type) are printed as underscores so the document can be completed by hand.
Proposer names are replaced by their cached genitive form when one exists.
*/
package report
