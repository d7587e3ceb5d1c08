package protocol

// CommandName identifies a vault command understood by the executor.
type CommandName string

// Commands issued by the connection layer. The executor may accept
// more; unknown names are passed through untouched.
const (
	CmdPing            CommandName = "PING"
	CmdGetTree         CommandName = "GET_TREE"
	CmdLoadTags        CommandName = "LOAD_TAGS"
	CmdLoadGraph       CommandName = "LOAD_GRAPH"
	CmdGetFile         CommandName = "GET_FILE"
	CmdGetRenderedFile CommandName = "GET_RENDERED_FILE"
	CmdSaveFile        CommandName = "SAVE_FILE"
	CmdWrite           CommandName = "WRITE"
	CmdCreateFile      CommandName = "CREATE_FILE"
	CmdCreateFolder    CommandName = "CREATE_FOLDER"
	CmdRenameFile      CommandName = "RENAME_FILE"
	CmdDeleteFile      CommandName = "DELETE_FILE"
	CmdOpenFile        CommandName = "OPEN_FILE"
	CmdOpenDailyNote   CommandName = "OPEN_DAILY_NOTE"
)

var knownCommands = map[CommandName]struct{}{
	CmdPing:            {},
	CmdGetTree:         {},
	CmdLoadTags:        {},
	CmdLoadGraph:       {},
	CmdGetFile:         {},
	CmdGetRenderedFile: {},
	CmdSaveFile:        {},
	CmdWrite:           {},
	CmdCreateFile:      {},
	CmdCreateFolder:    {},
	CmdRenameFile:      {},
	CmdDeleteFile:      {},
	CmdOpenFile:        {},
	CmdOpenDailyNote:   {},
}

// IsKnown reports whether the name is part of the core vocabulary.
func (c CommandName) IsKnown() bool {
	_, ok := knownCommands[c]
	return ok
}
