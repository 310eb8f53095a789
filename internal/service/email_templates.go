package service

import (
	"fmt"

	"github.com/chainforge/chainforge/internal/model"
)

func welcomeEmailTemplate(name, dashboardURL, appName string) (string, string) {
	subject := fmt.Sprintf("Welcome to %s!", appName)
	body := fmt.Sprintf(`Hi %s,

Your account is active!

Set your first goal, or join a group and forge a chain together: %s

If you have questions, reach out to our support team.

Best,
The %s Team`, name, dashboardURL, appName)

	return subject, body
}

func groupInviteEmailTemplate(inviterName, groupName, joinURL, appName string) (string, string) {
	subject := fmt.Sprintf("%s invited you to %s on %s", inviterName, groupName, appName)
	body := fmt.Sprintf(`Hi,

%s invited you to join the group "%s".

Join here: %s

Best,
The %s Team`, inviterName, groupName, joinURL, appName)

	return subject, body
}

func periodSummaryEmailTemplate(user *model.User, report *PeriodReport, appName string) (string, string) {
	subject := fmt.Sprintf("%s: period results for %s", appName, report.GoalName)

	const dateLayout = "Jan 2, 2006"
	window := fmt.Sprintf("%s to %s",
		report.StartDate.Format(dateLayout), report.EndDate.Format(dateLayout))

	outcome := "You hit your target. Nice work!"
	if penalty, ok := report.Penalties[user.ID]; ok {
		outcome = fmt.Sprintf("You missed your target by %s. That shortfall carries over on top of your next target.", penalty.String())
	}

	next := "This goal has been deactivated, so no new period was started."
	if report.NextStartDate != nil && report.NextEndDate != nil {
		next = fmt.Sprintf("The next period runs %s to %s. Set your target now!",
			report.NextStartDate.Format(dateLayout), report.NextEndDate.Format(dateLayout))
	}

	body := fmt.Sprintf(`Hi %s,

The period %s for "%s" has ended.

%s

Group result: %d of %d participants completed their target (%.0f%%).

%s

Best,
The %s Team`,
		user.Name,
		window,
		report.GoalName,
		outcome,
		report.CompletedCount,
		report.TotalParticipants,
		report.CompletionRate(),
		next,
		appName,
	)

	return subject, body
}
