package contact_status_enum

// 联系人状态，与 user_contact.status 列对应
const (
	NORMAL    = 0 // 正常好友
	BLACK     = 1 // 拉黑对方
	BE_BLACK  = 2 // 被对方拉黑
	DELETE    = 3 // 删除好友
	BE_DELETE = 4 // 被对方删除
)
