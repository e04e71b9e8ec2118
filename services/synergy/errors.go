// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package synergy

import "errors"

var (
	// ErrForbidden indicates the acting user lacks access to the
	// resource: not a member for reads and writes, not the owner for
	// owner-only operations.
	ErrForbidden = errors.New("actor does not have access to this resource")

	// ErrNotCommentAuthor indicates someone other than the comment's
	// author tried to delete it.
	ErrNotCommentAuthor = errors.New("only the comment author can delete a comment")
)
