package app

type createUserReq struct {
	Username param `form:"username" json:"username" binding:"required,min=2,max=30,username"`
	Password param `form:"password" json:"password"`
}

type createMeetingReq struct {
	CreatorUsername param `form:"creator_username" json:"creator_username" binding:"required,min=2,max=30,username"`
	Start           param `form:"start" json:"start" binding:"required"`
	End             param `form:"end" json:"end" binding:"required"`
	Description     param `form:"description" json:"description" binding:"max=200"`
	Invitees        param `form:"invitees" json:"invitees" binding:"omitempty,usernames"`
	RepeatType      param `form:"repeat_type" json:"repeat_type" binding:"omitempty,repeat_type"`
	IsPrivate       param `form:"is_private" json:"is_private" binding:"omitempty,boolean"`
}

type answerInvitationReq struct {
	Username  param `form:"username" json:"username" binding:"required,min=2,max=30,username"`
	MeetingID param `form:"meeting_id" json:"meeting_id" binding:"required,number"`
	Answer    param `form:"answer" json:"answer" binding:"required,boolean"`
}

type rangeReq struct {
	Start param `form:"start" json:"start" binding:"required"`
	End   param `form:"end" json:"end" binding:"required"`
}

type freeWindowReq struct {
	Usernames  param `form:"usernames" json:"usernames" binding:"required,usernames"`
	WindowSize param `form:"window_size" json:"window_size" binding:"required,number"`
	Start      param `form:"start" json:"start" binding:"required"`
}

type importReq struct {
	CalendarID param `form:"calendar_id" json:"calendar_id"`
	TimeMin    param `form:"time_min" json:"time_min"`
	TimeMax    param `form:"time_max" json:"time_max"`
}

// Window is a free slot found for a group of users.
type Window struct {
	Start string `json:"start"`
	End   string `json:"end"`
}
