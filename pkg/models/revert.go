package models

// RevertStatus is the closed set of terminal outcomes of a revert
// operation. Expected failures are statuses, not errors; only
// collaborator faults surface as errors.
type RevertStatus int

const (
	// RevertStatusUnknown is the zero value, returned alongside a
	// non-nil error when the operation failed in a collaborator.
	RevertStatusUnknown RevertStatus = iota

	// RevertOK means the revert was committed and the mirror
	// synchronization was triggered.
	RevertOK

	// RevertNotCleanWorkingDirectory means the precondition failed;
	// nothing was mutated.
	RevertNotCleanWorkingDirectory

	// RevertMergeConflict means the backend could not apply the revert
	// and restored the pre-attempt state.
	RevertMergeConflict

	// RevertViolatedReferentialIntegrity means the speculative revert
	// applied cleanly but would leave a dangling or orphaned reference;
	// the revert was aborted before returning.
	RevertViolatedReferentialIntegrity

	// RevertNothingToCommit means a bulk revert produced no diff
	// against the current state.
	RevertNothingToCommit
)

var revertStatusNames = map[RevertStatus]string{
	RevertOK:                           "OK",
	RevertNotCleanWorkingDirectory:     "NOT_CLEAN_WORKING_DIRECTORY",
	RevertMergeConflict:                "MERGE_CONFLICT",
	RevertViolatedReferentialIntegrity: "VIOLATED_REFERENTIAL_INTEGRITY",
	RevertNothingToCommit:              "NOTHING_TO_COMMIT",
}

func (s RevertStatus) String() string {
	if name, ok := revertStatusNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}
