package export

import "errors"

// ErrNoPlayer indicates previews were requested without a player.
var ErrNoPlayer = errors.New("no audio player configured")
