// Package audit writes the append-only JSONL journal consumed by the
// offline fairness and compliance auditor.
//
// Each step produces one "ace_step" entry with a unique entry id and a
// class/anchor context tag. Committed steps additionally produce a "petc"
// entry referencing the step's entry id and listing the ledger decrements
// applied, and an interval "audit" marker every N committed steps. Report
// generation itself lives outside this repository; the journal schema is
// the sole contract the engine satisfies toward it.
package audit
