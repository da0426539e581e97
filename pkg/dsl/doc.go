/*
Package dsl provides a fluent builder for constructing flow documents in
Go instead of YAML or JSON. It is useful for tests, generated flows and
hosts that assemble conversations dynamically.

	flow := dsl.New("checkin").
		DefaultMessage("Sorry, I didn't catch that.").
		Trigger(".*help.*", "help").
		Branch("help").Respond("What do you need?").Builder().
		MustBuild()

	dsl.New("checkin").Initial().
		Respond("Hi {{user.first}}! Ready to review {{customer.name}}?").
		Button("Yes", "yes", "review").
		Button("Not now", "no", "snooze")

Build validates that every transition targets a defined branch, the same
check the engine performs at assembly time.
*/
package dsl
